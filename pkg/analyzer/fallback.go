package analyzer

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/diskwise-ai/diskwise/pkg/models"
)

// RuleBased is the offline analyzer used when the model API is
// unreachable. It matches file name and location patterns against a
// fixed rule table, so the tool still works without a network.
type RuleBased struct {
	rules []patternRule
	now   func() time.Time
}

type patternRule struct {
	category       string
	recommendation string
	confidence     float64
	riskLevel      string
	reasoning      string
	match          func(r *RuleBased, m models.FileMetadata) bool
}

// NewRuleBased builds the fallback analyzer with its default rules.
func NewRuleBased() *RuleBased {
	rb := &RuleBased{now: time.Now}
	rb.rules = []patternRule{
		{
			category:       "temporary",
			recommendation: models.RecommendDelete,
			confidence:     0.9,
			riskLevel:      "low",
			reasoning:      "temporary file by name or extension",
			match: func(_ *RuleBased, m models.FileMetadata) bool {
				if m.FileType == "temporary" {
					return true
				}
				for _, pat := range []string{"~*", ".DS_Store", "Thumbs.db", "desktop.ini", "*.crdownload", "*.part"} {
					if ok, _ := filepath.Match(pat, m.Name); ok {
						return true
					}
				}
				return false
			},
		},
		{
			category:       "cache",
			recommendation: models.RecommendDelete,
			confidence:     0.85,
			riskLevel:      "low",
			reasoning:      "lives in a cache directory",
			match: func(_ *RuleBased, m models.FileMetadata) bool {
				lower := strings.ToLower(filepath.ToSlash(m.Path))
				return strings.Contains(lower, "/cache/") || strings.Contains(lower, "/.cache/")
			},
		},
		{
			category:       "log",
			recommendation: models.RecommendDelete,
			confidence:     0.8,
			riskLevel:      "low",
			reasoning:      "log file not modified for over a week",
			match: func(r *RuleBased, m models.FileMetadata) bool {
				return m.FileType == "log" && r.now().Sub(m.ModifiedAt) > 7*24*time.Hour
			},
		},
		{
			category:       "log",
			recommendation: models.RecommendReview,
			confidence:     0.6,
			riskLevel:      "low",
			reasoning:      "recently written log file",
			match: func(_ *RuleBased, m models.FileMetadata) bool {
				return m.FileType == "log"
			},
		},
		{
			category:       "document",
			recommendation: models.RecommendKeep,
			confidence:     0.7,
			riskLevel:      "medium",
			reasoning:      "user document",
			match: func(_ *RuleBased, m models.FileMetadata) bool {
				return m.FileType == "document" || m.FileType == "image"
			},
		},
	}
	return rb
}

// Analyze produces conservative recommendations from metadata patterns
// alone. Files matching no rule are sent to review.
func (r *RuleBased) Analyze(files []models.FileMetadata) *models.AnalysisResult {
	res := &models.AnalysisResult{Mode: models.ModeRuleBased}
	for _, f := range files {
		res.Recommendations = append(res.Recommendations, r.analyzeOne(f))
	}
	return res
}

func (r *RuleBased) analyzeOne(m models.FileMetadata) models.FileRecommendation {
	for _, rule := range r.rules {
		if rule.match(r, m) {
			return models.FileRecommendation{
				Path:           m.Path,
				Category:       rule.category,
				Recommendation: rule.recommendation,
				Confidence:     rule.confidence,
				RiskLevel:      rule.riskLevel,
				Reasoning:      rule.reasoning,
			}
		}
	}
	return models.FileRecommendation{
		Path:           m.Path,
		Category:       "unknown",
		Recommendation: models.RecommendReview,
		Confidence:     0.4,
		RiskLevel:      "medium",
		Reasoning:      "no rule matched, needs human review",
	}
}
