package cache

import "time"

// validity classifies a looked-up entry against current file state.
type validity int

const (
	valid   validity = iota
	expired          // TTL elapsed, files unchanged
	drifted          // underlying files changed since caching
)

// checkValidity decides whether a stored entry may still be served.
// TTL is checked first, then metadata drift against the source hash
// recomputed from the caller's current file identities. The check is
// read-side only; it never stats the disk itself.
func checkValidity(e *Entry, currentSourceHash string, now time.Time) validity {
	if e.expired(now) {
		return expired
	}
	if e.SourceHash != currentSourceHash {
		return drifted
	}
	return valid
}
