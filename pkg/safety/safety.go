package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
)

// Protection levels, strongest first.
const (
	LevelCritical  = "critical"  // system files, never deletable
	LevelProtected = "protected" // user-protected paths
	LevelConfirm   = "confirm"   // large files
	LevelReview    = "review"    // recently modified files
	LevelNone      = ""
)

// Rule evaluates one protection concern against a file. Rules are
// consulted in priority order; the first match wins.
type Rule interface {
	Name() string
	Priority() int
	Evaluate(m models.FileMetadata, now time.Time) string
}

// Evaluator applies the configured protection rules to files and to
// analysis recommendations.
type Evaluator struct {
	rules []Rule
	now   func() time.Time
}

// New builds an Evaluator from configuration. The rule set always
// includes system path protection; the rest depends on config.
func New(cfg config.SafetyConfig) *Evaluator {
	rules := []Rule{systemPathRule{prefixes: systemPrefixes()}}
	if len(cfg.ProtectedPaths) > 0 {
		rules = append(rules, protectedPathRule{prefixes: cfg.ProtectedPaths})
	}
	if cfg.LargeFileBytes > 0 {
		rules = append(rules, largeFileRule{limit: cfg.LargeFileBytes})
	}
	if cfg.RecentAge > 0 {
		rules = append(rules, recentFileRule{age: cfg.RecentAge})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Priority() > rules[j].Priority() })
	return &Evaluator{rules: rules, now: time.Now}
}

// Evaluate returns the protection level for a file, or LevelNone.
func (e *Evaluator) Evaluate(m models.FileMetadata) string {
	now := e.now()
	for _, r := range e.rules {
		if lvl := r.Evaluate(m, now); lvl != LevelNone {
			return lvl
		}
	}
	return LevelNone
}

// RuleSetID is a stable identifier for the active rules and their
// thresholds. It feeds the analysis parameters so cached results are
// keyed to the safety configuration that shaped them.
func (e *Evaluator) RuleSetID() string {
	h := sha256.New()
	for _, r := range e.rules {
		fmt.Fprintf(h, "%s/%d\n", r.Name(), r.Priority())
		if d, ok := r.(describer); ok {
			fmt.Fprintln(h, d.describe())
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Apply downgrades recommendations that conflict with protection rules.
// A protected file is never left as "delete".
func (e *Evaluator) Apply(recs []models.FileRecommendation, files []models.FileMetadata) []models.FileRecommendation {
	byPath := make(map[string]models.FileMetadata, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	out := make([]models.FileRecommendation, len(recs))
	for i, rec := range recs {
		out[i] = rec
		if rec.Recommendation != models.RecommendDelete {
			continue
		}
		meta, ok := byPath[rec.Path]
		if !ok {
			continue
		}
		switch e.Evaluate(meta) {
		case LevelCritical, LevelProtected:
			out[i].Recommendation = models.RecommendKeep
			out[i].RiskLevel = "high"
			out[i].Reasoning = rec.Reasoning + " (protected path, deletion blocked)"
		case LevelConfirm, LevelReview:
			out[i].Recommendation = models.RecommendReview
			out[i].Reasoning = rec.Reasoning + " (flagged for manual review)"
		}
	}
	return out
}

type describer interface{ describe() string }

type systemPathRule struct{ prefixes []string }

func (systemPathRule) Name() string  { return "system-paths" }
func (systemPathRule) Priority() int { return 100 }
func (r systemPathRule) Evaluate(m models.FileMetadata, _ time.Time) string {
	for _, p := range r.prefixes {
		if strings.HasPrefix(m.Path, p) {
			return LevelCritical
		}
	}
	return LevelNone
}

type protectedPathRule struct{ prefixes []string }

func (protectedPathRule) Name() string  { return "protected-paths" }
func (protectedPathRule) Priority() int { return 90 }
func (r protectedPathRule) Evaluate(m models.FileMetadata, _ time.Time) string {
	for _, p := range r.prefixes {
		if p != "" && strings.HasPrefix(m.Path, p) {
			return LevelProtected
		}
	}
	return LevelNone
}
func (r protectedPathRule) describe() string { return strings.Join(r.prefixes, ",") }

type largeFileRule struct{ limit int64 }

func (largeFileRule) Name() string  { return "large-files" }
func (largeFileRule) Priority() int { return 50 }
func (r largeFileRule) Evaluate(m models.FileMetadata, _ time.Time) string {
	if m.SizeBytes >= r.limit {
		return LevelConfirm
	}
	return LevelNone
}
func (r largeFileRule) describe() string { return fmt.Sprintf("limit=%d", r.limit) }

type recentFileRule struct{ age time.Duration }

func (recentFileRule) Name() string  { return "recent-files" }
func (recentFileRule) Priority() int { return 40 }
func (r recentFileRule) Evaluate(m models.FileMetadata, now time.Time) string {
	if now.Sub(m.ModifiedAt) < r.age {
		return LevelReview
	}
	return LevelNone
}
func (r recentFileRule) describe() string { return r.age.String() }

func systemPrefixes() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{`C:\Windows`, `C:\Program Files`, `C:\Program Files (x86)`, `C:\ProgramData`}
	case "darwin":
		return []string{"/System", "/Library", "/usr", "/bin", "/sbin", "/private/etc", "/Applications"}
	default:
		return []string{"/usr", "/bin", "/sbin", "/lib", "/lib64", "/etc", "/boot", "/opt", "/proc", "/sys", "/dev"}
	}
}
