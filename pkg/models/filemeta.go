package models

import "time"

// FileMetadata describes a single scanned file. Only metadata is ever
// collected; file contents are never read or transmitted.
type FileMetadata struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Extension  string    `json:"extension"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	FileType   string    `json:"file_type"`
	IsHidden   bool      `json:"is_hidden"`
}

// AnalysisParameters are the settings that affect what the model would
// answer for a given file set. They are part of the cache key.
type AnalysisParameters struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	RuleSet     string  `json:"rule_set"`
}
