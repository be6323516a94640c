// Package history keeps a local log of upload, convert, split and download outcomes.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docconv/internal/database"
)

// timeLayout sorts lexically in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one recorded operation outcome
type Entry struct {
	ID        string
	Operation string // upload, convert, split, download
	FileID    string
	FileName  string
	Status    string // success, error, info
	Message   string
	Detail    map[string]any
	CreatedAt time.Time
}

// Store persists entries in SQLite
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l.With().Str("component", "history").Logger() }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens the history database at path, creating and migrating it as needed
func Open(path string, opts ...Option) (*Store, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record stores e, filling in ID and CreatedAt when unset
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	detail := []byte("{}")
	if len(e.Detail) > 0 {
		var err error
		if detail, err = json.Marshal(e.Detail); err != nil {
			return e, fmt.Errorf("failed to encode detail: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (id, operation, file_id, file_name, status, message, created_at, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Operation, e.FileID, e.FileName, e.Status, e.Message, e.CreatedAt.Format(timeLayout), string(detail))
	if err != nil {
		return e, fmt.Errorf("failed to record %s: %w", e.Operation, err)
	}

	s.logger.Debug().Str("op", e.Operation).Str("status", e.Status).Str("file_id", e.FileID).Msg("recorded")
	return e, nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, operation, file_id, file_name, status, message, created_at, detail
		FROM operations ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
			detail  string
		)
		if err := rows.Scan(&e.ID, &e.Operation, &e.FileID, &e.FileName, &e.Status, &e.Message, &created, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", created, err)
		}
		if detail != "" && detail != "{}" {
			if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
				s.logger.Warn().Err(err).Str("id", e.ID).Msg("ignoring malformed detail")
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries created before now minus olderThan and returns how many were removed
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UTC()
	res, err := s.db.ExecContext(ctx, "DELETE FROM operations WHERE created_at < ?", cutoff.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("pruned history")
	}
	return n, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
