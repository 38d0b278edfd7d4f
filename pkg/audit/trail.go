package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
)

// Trail records every recommendation and user action in a dedicated
// SQLite database, so cleanup decisions stay reviewable after the fact.
type Trail struct {
	db   *sql.DB
	cfg  config.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// Open opens the audit database and creates the schema.
func Open(cfg config.AuditConfig) (*Trail, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	t := &Trail{db: db, cfg: cfg, done: make(chan struct{})}
	if cfg.RetentionDays > 0 {
		t.wg.Add(1)
		go t.retentionLoop()
	}
	return t, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_trail (
		id                TEXT PRIMARY KEY,
		session_id        TEXT NOT NULL,
		path              TEXT NOT NULL,
		category          TEXT,
		recommendation    TEXT NOT NULL,
		confidence        REAL NOT NULL,
		risk_level        TEXT,
		action            TEXT NOT NULL,
		mode              TEXT NOT NULL,
		model             TEXT,
		prompt_tokens     INTEGER,
		completion_tokens INTEGER,
		created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_trail_session ON audit_trail(session_id)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_trail_path ON audit_trail(path)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_trail_created ON audit_trail(created_at)`)
	return err
}

// NewSessionID returns a fresh session identifier for one scan run.
func NewSessionID() string { return uuid.NewString() }

// RecordAnalysis writes one row per recommendation produced in a
// session. Token usage is attributed to the first row of the batch.
func (t *Trail) RecordAnalysis(ctx context.Context, sessionID string, res *models.AnalysisResult, model string) error {
	if t == nil || t.db == nil {
		return nil
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("audit begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i, rec := range res.Recommendations {
		prompt, completion := 0, 0
		if i == 0 {
			prompt, completion = res.PromptTokens, res.CompletionTokens
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO audit_trail
			(id, session_id, path, category, recommendation, confidence,
			 risk_level, action, mode, model, prompt_tokens, completion_tokens, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), sessionID, rec.Path, rec.Category, rec.Recommendation,
			rec.Confidence, rec.RiskLevel, "recommended", res.Mode, model,
			prompt, completion, now,
		)
		if err != nil {
			return fmt.Errorf("audit insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("audit commit: %w", err)
	}
	return nil
}

// RecordAction notes what actually happened to a file, e.g. "trashed"
// or "kept".
func (t *Trail) RecordAction(ctx context.Context, sessionID, path, action string) error {
	if t == nil || t.db == nil {
		return nil
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO audit_trail
		(id, session_id, path, recommendation, confidence, action, mode, created_at)
		VALUES (?, ?, ?, '', 0, ?, '', ?)`,
		uuid.NewString(), sessionID, path, action, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("audit action: %w", err)
	}
	return nil
}

// Query returns audit records matching the given options, newest first.
func (t *Trail) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditRecord, error) {
	q := `SELECT id, session_id, path, category, recommendation, confidence,
		risk_level, action, mode, model, prompt_tokens, completion_tokens, created_at
		FROM audit_trail WHERE 1=1`
	var args []any

	if opts.SessionID != "" {
		q += " AND session_id = ?"
		args = append(args, opts.SessionID)
	}
	if opts.Action != "" {
		q += " AND action = ?"
		args = append(args, opts.Action)
	}
	if opts.Path != "" {
		q += " AND path = ?"
		args = append(args, opts.Path)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var r models.AuditRecord
		var category, riskLevel, mode, model sql.NullString
		var prompt, completion sql.NullInt64
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.Path, &category, &r.Recommendation,
			&r.Confidence, &riskLevel, &r.Action, &mode, &model,
			&prompt, &completion, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		r.Category = category.String
		r.RiskLevel = riskLevel.String
		r.Mode = mode.String
		r.Model = model.String
		r.PromptTokens = int(prompt.Int64)
		r.CompletionTokens = int(completion.Int64)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Cleanup deletes records older than the configured retention period.
func (t *Trail) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -t.cfg.RetentionDays)
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM audit_trail WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (t *Trail) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	close(t.done)
	t.wg.Wait()
	return t.db.Close()
}

func (t *Trail) retentionLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			_, _ = t.Cleanup(context.Background())
		}
	}
}
