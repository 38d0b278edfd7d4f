package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"

	"github.com/diskwise-ai/diskwise/pkg/models"
)

// Fingerprint identifies an analysis result by the file set it covers and
// the parameters that produced it.
type Fingerprint string

// Compute derives a fingerprint from file identities and analysis
// parameters. It is a pure function: the same inputs always yield the
// same fingerprint, regardless of the order of the file list.
func Compute(files []models.FileMetadata, params models.AnalysisParameters) Fingerprint {
	h := sha256.New()
	writeIdentities(h, files)
	h.Write([]byte{0x1d})
	h.Write([]byte(params.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(float64(params.Temperature), 'g', -1, 32)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(params.MaxTokens)))
	h.Write([]byte{0})
	h.Write([]byte(params.RuleSet))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// SourceHash hashes the file identities alone, independent of parameters.
// It lets a stored entry detect that its underlying files changed even
// after the fingerprint already matched.
func SourceHash(files []models.FileMetadata) string {
	h := sha256.New()
	writeIdentities(h, files)
	return hex.EncodeToString(h.Sum(nil))
}

func writeIdentities(h io.Writer, files []models.FileMetadata) {
	paths := make([]string, 0, len(files))
	byPath := make(map[string]models.FileMetadata, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
		byPath[f.Path] = f
	}
	sort.Strings(paths)
	for _, p := range paths {
		f := byPath[p]
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(f.SizeBytes, 10)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(f.ModifiedAt.UnixNano(), 10)))
		h.Write([]byte{0x1e})
	}
}
