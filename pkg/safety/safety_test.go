package safety

import (
	"runtime"
	"testing"
	"time"

	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
)

func testEvaluator(cfg config.SafetyConfig) *Evaluator {
	e := New(cfg)
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestSystemPathsAreCritical(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix-style paths")
	}
	e := testEvaluator(config.SafetyConfig{})
	m := models.FileMetadata{Path: "/usr/lib/libfoo.so", SizeBytes: 100}
	if got := e.Evaluate(m); got != LevelCritical {
		t.Errorf("expected critical, got %q", got)
	}
}

func TestProtectedPathBeatsSizeRules(t *testing.T) {
	e := testEvaluator(config.SafetyConfig{
		ProtectedPaths: []string{"/home/u/documents"},
		LargeFileBytes: 10,
	})
	m := models.FileMetadata{Path: "/home/u/documents/thesis.pdf", SizeBytes: 100}
	if got := e.Evaluate(m); got != LevelProtected {
		t.Errorf("expected protected, got %q", got)
	}
}

func TestLargeAndRecentRules(t *testing.T) {
	e := testEvaluator(config.SafetyConfig{
		LargeFileBytes: 1 << 30,
		RecentAge:      30 * 24 * time.Hour,
	})

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	large := models.FileMetadata{Path: "/home/u/video.mkv", SizeBytes: 2 << 30, ModifiedAt: old}
	if got := e.Evaluate(large); got != LevelConfirm {
		t.Errorf("expected confirm for large file, got %q", got)
	}

	recent := models.FileMetadata{Path: "/home/u/notes.txt", SizeBytes: 10, ModifiedAt: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)}
	if got := e.Evaluate(recent); got != LevelReview {
		t.Errorf("expected review for recent file, got %q", got)
	}

	plain := models.FileMetadata{Path: "/home/u/old.tmp", SizeBytes: 10, ModifiedAt: old}
	if got := e.Evaluate(plain); got != LevelNone {
		t.Errorf("expected no protection, got %q", got)
	}
}

func TestApplyDowngradesDelete(t *testing.T) {
	e := testEvaluator(config.SafetyConfig{
		ProtectedPaths: []string{"/home/u/documents"},
		RecentAge:      30 * 24 * time.Hour,
	})

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	files := []models.FileMetadata{
		{Path: "/home/u/documents/cv.docx", SizeBytes: 10, ModifiedAt: old},
		{Path: "/home/u/fresh.tmp", SizeBytes: 10, ModifiedAt: time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)},
		{Path: "/home/u/stale.tmp", SizeBytes: 10, ModifiedAt: old},
	}
	recs := []models.FileRecommendation{
		{Path: files[0].Path, Recommendation: models.RecommendDelete, Reasoning: "old document"},
		{Path: files[1].Path, Recommendation: models.RecommendDelete, Reasoning: "temp file"},
		{Path: files[2].Path, Recommendation: models.RecommendDelete, Reasoning: "temp file"},
	}

	out := e.Apply(recs, files)
	if out[0].Recommendation != models.RecommendKeep {
		t.Errorf("protected file should become keep, got %q", out[0].Recommendation)
	}
	if out[1].Recommendation != models.RecommendReview {
		t.Errorf("recent file should become review, got %q", out[1].Recommendation)
	}
	if out[2].Recommendation != models.RecommendDelete {
		t.Errorf("unprotected file should stay delete, got %q", out[2].Recommendation)
	}
	// Input slice is not mutated.
	if recs[0].Recommendation != models.RecommendDelete {
		t.Error("Apply must not mutate its input")
	}
}

func TestRuleSetIDStable(t *testing.T) {
	cfg := config.SafetyConfig{
		ProtectedPaths: []string{"/home/u/documents"},
		LargeFileBytes: 1 << 30,
		RecentAge:      30 * 24 * time.Hour,
	}
	a := New(cfg).RuleSetID()
	b := New(cfg).RuleSetID()
	if a != b {
		t.Error("same config should produce the same rule set ID")
	}

	cfg.LargeFileBytes = 2 << 30
	if New(cfg).RuleSetID() == a {
		t.Error("threshold change should change the rule set ID")
	}
}
