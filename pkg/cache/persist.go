package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// formatVersion tags the on-disk snapshot layout. A mismatch on load
// means a cold start rather than a risky partial read.
const formatVersion = 1

var gzipMagic = []byte{0x1f, 0x8b}

// persister saves and loads the full entry set as a single snapshot
// file with a one-generation backup. Writes go to a temp file that is
// fsynced and renamed over the canonical path, so a crash mid-save can
// never corrupt the previous snapshot.
type persister struct {
	path     string // canonical snapshot file
	compress bool

	mu sync.Mutex // one save in flight at a time
}

type snapshotFile struct {
	Version int              `json:"version"`
	SavedAt time.Time        `json:"saved_at"`
	Entries []snapshotRecord `json:"entries"`
}

type snapshotRecord struct {
	Fingerprint  string    `json:"fingerprint"`
	Result       []byte    `json:"result"`
	Paths        []string  `json:"paths"`
	SourceHash   string    `json:"source_hash"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	TTLSeconds   int64     `json:"ttl_seconds"`
	SizeBytes    int64     `json:"size_bytes"`
}

func (p *persister) backupPath() string { return p.path + ".bak" }
func (p *persister) tempPath() string   { return p.path + ".tmp" }

// save atomically replaces the snapshot with the given entries.
func (p *persister) save(entries []*Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := snapshotFile{
		Version: formatVersion,
		SavedAt: time.Now().UTC(),
		Entries: make([]snapshotRecord, 0, len(entries)),
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, snapshotRecord{
			Fingerprint:  string(e.Fingerprint),
			Result:       e.Result,
			Paths:        e.Paths,
			SourceHash:   e.SourceHash,
			CreatedAt:    e.CreatedAt,
			LastAccessed: e.LastAccessed(),
			TTLSeconds:   int64(e.TTL.Seconds()),
			SizeBytes:    e.SizeBytes,
		})
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if p.compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress snapshot: %w", err)
		}
		data = buf.Bytes()
	}

	tmp := p.tempPath()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	// Rotate the previous snapshot to .bak before the rename so one
	// generation survives until the new write is in place.
	if _, err := os.Stat(p.path); err == nil {
		if err := os.Rename(p.path, p.backupPath()); err != nil {
			return fmt.Errorf("rotate backup: %w", err)
		}
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// load reads the snapshot, falling back to the backup on corruption or
// version mismatch. It never fails hard: a cold cache is always a safe
// result.
func (p *persister) load() []*Entry {
	entries, err := p.loadFile(p.path)
	if err == nil {
		return entries
	}
	if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", p.path).Msg("cache snapshot unreadable, trying backup")
	}

	entries, bakErr := p.loadFile(p.backupPath())
	if bakErr == nil {
		return entries
	}
	if !os.IsNotExist(bakErr) {
		log.Warn().Err(bakErr).Str("file", p.backupPath()).Msg("cache backup unreadable, starting cold")
	}
	return nil
}

func (p *persister) loadFile(path string) ([]*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Decompress transparently based on content, not configuration, so
	// toggling compression does not orphan an existing snapshot.
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip snapshot: %w", err)
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != formatVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Version, formatVersion)
	}

	entries := make([]*Entry, 0, len(snap.Entries))
	for _, r := range snap.Entries {
		e := &Entry{
			Fingerprint: Fingerprint(r.Fingerprint),
			Result:      r.Result,
			Paths:       r.Paths,
			SourceHash:  r.SourceHash,
			CreatedAt:   r.CreatedAt,
			TTL:         time.Duration(r.TTLSeconds) * time.Second,
			SizeBytes:   r.SizeBytes,
		}
		e.touch(r.LastAccessed)
		entries = append(entries, e)
	}
	return entries, nil
}
