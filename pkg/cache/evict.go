package cache

import "sort"

// victims selects entries to evict so that both the entry-count and
// total-size limits hold again. Least-recently-accessed entries go
// first; ties fall back to the oldest creation time. A limit of zero
// or below disables that bound.
func victims(entries []*Entry, maxEntries int, maxSizeBytes int64) []Fingerprint {
	count := len(entries)
	var size int64
	for _, e := range entries {
		size += e.SizeBytes
	}

	overCount := maxEntries > 0 && count > maxEntries
	overSize := maxSizeBytes > 0 && size > maxSizeBytes
	if !overCount && !overSize {
		return nil
	}

	sorted := make([]*Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		ai, aj := sorted[i].lastAccess.Load(), sorted[j].lastAccess.Load()
		if ai != aj {
			return ai < aj
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var out []Fingerprint
	for _, e := range sorted {
		if (maxEntries <= 0 || count <= maxEntries) && (maxSizeBytes <= 0 || size <= maxSizeBytes) {
			break
		}
		out = append(out, e.Fingerprint)
		count--
		size -= e.SizeBytes
	}
	return out
}
