package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/perceptlabs/percept-core/internal/config"
	"github.com/perceptlabs/percept-core/internal/recog"
	_ "modernc.org/sqlite"
)

// StoredResult is a persisted flattened recognition result.
type StoredResult struct {
	ID        int64
	SessionID string
	Result    *recog.Result
	CreatedAt time.Time
}

// Store persists flattened recognition results in SQLite. The offset
// tables are stored as JSON columns beside the text; they are small and
// only ever read back whole.
type Store struct {
	db    *sql.DB
	cfg   config.ResultStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the result store according to config. In ephemeral
// retention mode no database is opened and every operation is a no-op.
func Open(ctx context.Context, cfg config.ResultStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("result store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("result store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    text TEXT NOT NULL,
    line_end_offsets TEXT NOT NULL,
    words TEXT NOT NULL,
    origin_x INTEGER NOT NULL,
    origin_y INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_results_session_created ON results(session_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendSession ensures a session row exists.
func (s *Store) AppendSession(ctx context.Context, sessionID string) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, created_at) VALUES(?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID, s.clock().UTC())
	return err
}

// SaveResult writes a flattened result for a session.
func (s *Store) SaveResult(ctx context.Context, sessionID string, res *recog.Result) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	lineEnds, err := json.Marshal(res.LineEndOffsets)
	if err != nil {
		return err
	}
	words, err := json.Marshal(res.Words)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results(session_id, text, line_end_offsets, words, origin_x, origin_y, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sessionID, res.Text, string(lineEnds), string(words), res.OriginX, res.OriginY, s.clock().UTC())
	return err
}

// ListSessionResults retrieves up to limit results for a session ordered
// ascending by time.
func (s *Store) ListSessionResults(ctx context.Context, sessionID string, limit int) ([]StoredResult, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, text, line_end_offsets, words, origin_x, origin_y, created_at
		 FROM results WHERE session_id = ? ORDER BY created_at ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StoredResult
	for rows.Next() {
		var sr StoredResult
		var res recog.Result
		var lineEnds, words, created string
		if err := rows.Scan(&sr.ID, &sr.SessionID, &res.Text, &lineEnds, &words, &res.OriginX, &res.OriginY, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(lineEnds), &res.LineEndOffsets); err != nil {
			return nil, fmt.Errorf("decode line offsets: %w", err)
		}
		if err := json.Unmarshal([]byte(words), &res.Words); err != nil {
			return nil, fmt.Errorf("decode words: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			sr.CreatedAt = ts
		}
		sr.Result = &res
		results = append(results, sr)
	}
	return results, rows.Err()
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxSessions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id IN (
			SELECT session_id FROM sessions ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
