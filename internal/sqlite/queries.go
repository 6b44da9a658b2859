// File path: internal/sqlite/queries.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RunRecord is a completed modernization run persisted in the catalog. The
// analysis column stores the full merged JSON document.
type RunRecord struct {
	ID         int64           `db:"id" json:"id"`
	SessionID  string          `db:"session_id" json:"session_id"`
	SourceName string          `db:"source_name" json:"source_name,omitempty"`
	Provider   string          `db:"provider" json:"provider,omitempty"`
	ChunkCount int             `db:"chunk_count" json:"chunk_count"`
	Purpose    string          `db:"purpose" json:"purpose,omitempty"`
	Analysis   json.RawMessage `db:"analysis" json:"analysis,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// RunSummary is the listing view of a run: everything except the analysis
// payload.
type RunSummary struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	SourceName string    `db:"source_name" json:"source_name,omitempty"`
	Provider   string    `db:"provider" json:"provider,omitempty"`
	ChunkCount int       `db:"chunk_count" json:"chunk_count"`
	Purpose    string    `db:"purpose" json:"purpose,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RecordRun inserts a completed run and returns its identifier.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlite store not initialised")
	}
	if strings.TrimSpace(run.SessionID) == "" {
		return 0, fmt.Errorf("session id required")
	}
	if len(run.Analysis) == 0 {
		return 0, fmt.Errorf("analysis payload required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (session_id, source_name, provider, chunk_count, purpose, analysis) VALUES (?, ?, ?, ?, ?, ?)`,
		run.SessionID, run.SourceName, run.Provider, run.ChunkCount, run.Purpose, string(run.Analysis))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("resolve run id: %w", err)
	}
	return id, nil
}

// ListRuns returns run summaries, newest first. A non-positive limit uses 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	runs := []RunSummary{}
	err := s.db.SelectContext(ctx, &runs,
		`SELECT id, session_id, source_name, provider, chunk_count, purpose, created_at
                 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves a single run with its full analysis payload.
func (s *Store) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialised")
	}
	var row struct {
		RunSummary
		Analysis string `db:"analysis"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT id, session_id, source_name, provider, chunk_count, purpose, analysis, created_at
                 FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	return &RunRecord{
		ID:         row.ID,
		SessionID:  row.SessionID,
		SourceName: row.SourceName,
		Provider:   row.Provider,
		ChunkCount: row.ChunkCount,
		Purpose:    row.Purpose,
		Analysis:   json.RawMessage(row.Analysis),
		CreatedAt:  row.CreatedAt,
	}, nil
}
