package models

// Recommendation values for a single file.
const (
	RecommendDelete = "delete"
	RecommendKeep   = "keep"
	RecommendReview = "review"
)

// Analysis modes.
const (
	ModeAI        = "ai"
	ModeRuleBased = "rule_based"
)

// Error kinds recorded when an analysis degrades to rule-based mode.
const (
	ErrKindNetwork   = "network_error"
	ErrKindRateLimit = "rate_limit"
	ErrKindAuth      = "authentication"
	ErrKindServer    = "server_error"
	ErrKindTimeout   = "timeout"
	ErrKindUnknown   = "unknown"
)

// FileRecommendation is a per-file deletion judgment.
type FileRecommendation struct {
	Path           string  `json:"path"`
	Category       string  `json:"category"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	RiskLevel      string  `json:"risk_level"`
}

// AnalysisSummary aggregates recommendations for display.
type AnalysisSummary struct {
	Delete           int   `json:"delete"`
	Keep             int   `json:"keep"`
	Review           int   `json:"review"`
	BytesReclaimable int64 `json:"bytes_reclaimable"`
}

// AnalysisResult is the outcome of analyzing one file set.
type AnalysisResult struct {
	Recommendations  []FileRecommendation `json:"recommendations"`
	Summary          AnalysisSummary      `json:"summary"`
	Mode             string               `json:"mode"`
	ErrorKind        string               `json:"error_kind,omitempty"`
	FilesAnalyzed    int                  `json:"files_analyzed"`
	PromptTokens     int                  `json:"prompt_tokens,omitempty"`
	CompletionTokens int                  `json:"completion_tokens,omitempty"`
}

// Summarize recomputes the summary from the recommendations.
func (r *AnalysisResult) Summarize(files []FileMetadata) {
	sizes := make(map[string]int64, len(files))
	for _, f := range files {
		sizes[f.Path] = f.SizeBytes
	}
	var s AnalysisSummary
	for _, rec := range r.Recommendations {
		switch rec.Recommendation {
		case RecommendDelete:
			s.Delete++
			s.BytesReclaimable += sizes[rec.Path]
		case RecommendKeep:
			s.Keep++
		default:
			s.Review++
		}
	}
	r.Summary = s
	r.FilesAnalyzed = len(files)
}
