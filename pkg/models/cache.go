package models

// CacheStats reports cache performance counters. Counters only grow;
// they reset solely through an explicit stats reset.
type CacheStats struct {
	Entries       int64   `json:"entries"`
	SizeBytes     int64   `json:"size_bytes"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	Invalidations int64   `json:"invalidations"`
	HitRate       float64 `json:"hit_rate"`
}

// CacheInfo is a point-in-time description of cache contents.
type CacheInfo struct {
	Directory    string         `json:"directory"`
	Entries      int            `json:"entries"`
	SizeBytes    int64          `json:"size_bytes"`
	EntriesByAge map[string]int `json:"entries_by_age"`
	Stats        CacheStats     `json:"stats"`
}
