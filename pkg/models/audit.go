package models

import "time"

// AuditRecord is one row of the recommendation/action audit trail.
type AuditRecord struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Path             string    `json:"path"`
	Category         string    `json:"category"`
	Recommendation   string    `json:"recommendation"`
	Confidence       float64   `json:"confidence"`
	RiskLevel        string    `json:"risk_level"`
	Action           string    `json:"action"` // "recommended", "trashed", "kept"
	Mode             string    `json:"mode"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// AuditQueryOpts specifies filters for querying the audit trail.
type AuditQueryOpts struct {
	SessionID string
	Action    string
	Path      string
	Since     time.Time
	Limit     int
}
