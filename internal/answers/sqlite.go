package answers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // driver: sqlite
)

// SQLiteStore keeps answer sets in an embedded database file for
// single-node deployments where Redis is not configured. INSERT OR
// REPLACE of one row per exam gives the same whole-set atomicity as the
// Redis backend.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) the answer database at path.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite is single-writer; more connections just queue.
	db.SetMaxOpenConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS answer_sets (
	storage_key TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "answer_store").Logger(),
	}, nil
}

// Save writes the complete set in one statement.
func (s *SQLiteStore) Save(ctx context.Context, examID int64, set Set) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal answer set: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO answer_sets (storage_key, payload, updated_at) VALUES (?, ?, ?)`,
		StorageKey(examID), data, time.Now().UTC())
	return err
}

// Load returns the persisted set, or an empty one when nothing is stored.
func (s *SQLiteStore) Load(ctx context.Context, examID int64) (Set, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM answer_sets WHERE storage_key = ?`, StorageKey(examID)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get answer set: %w", err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		s.logger.Warn().Err(err).Int64("exam_id", examID).Msg("discarding corrupted answer set")
		return Set{}, nil
	}
	return set, nil
}

// Clear erases the persisted set.
func (s *SQLiteStore) Clear(ctx context.Context, examID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM answer_sets WHERE storage_key = ?`, StorageKey(examID))
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
