// Package session persists caller-owned conversation state: the command
// history of a session and its wizard progress.
//
// The interpretation engine itself is stateless. Transports that want
// multi-turn behaviour keep state here and resubmit it with each request.
package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/robloxmcp/studio-assist/common/retry"
	"github.com/robloxmcp/studio-assist/internal/wizard"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrSessionNotFound is returned for operations on an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// DefaultHistoryLimit is used by RecentCommands when limit is not positive.
const DefaultHistoryLimit = 20

// Store wraps the SQLite connection holding all session tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs all pending
// migrations. ":memory:" gives a private in-process database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// runMigrations applies any SQL files not yet recorded in schema_migrations.
func (s *Store) runMigrations() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(prefix, "%d", &version); err != nil || version <= current {
			continue
		}
		description := strings.TrimSuffix(rest, ".sql")

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			version, description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
		slog.Debug("applied migration", "version", version, "description", description)
	}
	return nil
}

// Create starts a new session and returns its ID.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	ts := s.now().UnixNano()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, ts, ts,
	); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Exists reports whether id names a session.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return true, nil
}

// touch bumps updated_at and reports ErrSessionNotFound for unknown IDs.
func touch(ctx context.Context, tx *sql.Tx, id string, ts int64) error {
	res, err := tx.ExecContext(ctx, "UPDATE sessions SET updated_at = ? WHERE id = ?", ts, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// AppendCommand records command as the newest entry in the session history.
func (s *Store) AppendCommand(ctx context.Context, id, command string) error {
	ts := s.now().UnixNano()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, id, ts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO session_commands (session_id, command, created_at) VALUES (?, ?, ?)",
			id, command, ts,
		)
		if err != nil {
			return fmt.Errorf("append command: %w", err)
		}
		return nil
	})
}

// RecentCommands returns up to limit of the newest commands, oldest first.
// The result is empty, not nil, for a session without history.
func (s *Store) RecentCommands(ctx context.Context, id string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT command FROM (
			SELECT seq, command FROM session_commands
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC`,
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// WizardProgress is the persisted position of a session in the wizard.
type WizardProgress struct {
	Step      wizard.Step
	Choices   map[string]any
	UpdatedAt time.Time
}

// SaveWizard stores (or replaces) the wizard progress of a session.
func (s *Store) SaveWizard(ctx context.Context, id string, step wizard.Step, choices map[string]any) error {
	if choices == nil {
		choices = map[string]any{}
	}
	blob, err := json.Marshal(choices)
	if err != nil {
		return fmt.Errorf("encode choices: %w", err)
	}
	ts := s.now().UnixNano()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, id, ts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO wizard_progress (session_id, step, choices, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				step       = excluded.step,
				choices    = excluded.choices,
				updated_at = excluded.updated_at`,
			id, string(step), string(blob), ts,
		)
		if err != nil {
			return fmt.Errorf("save wizard: %w", err)
		}
		return nil
	})
}

// LoadWizard returns the stored wizard progress. found is false when the
// session exists but has not started the wizard.
func (s *Store) LoadWizard(ctx context.Context, id string) (p WizardProgress, found bool, err error) {
	var (
		step string
		blob string
		ts   int64
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT step, choices, updated_at FROM wizard_progress WHERE session_id = ?", id,
	).Scan(&step, &blob, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		ok, exErr := s.Exists(ctx, id)
		if exErr != nil {
			return WizardProgress{}, false, exErr
		}
		if !ok {
			return WizardProgress{}, false, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return WizardProgress{}, false, nil
	}
	if err != nil {
		return WizardProgress{}, false, fmt.Errorf("load wizard: %w", err)
	}

	choices := map[string]any{}
	if err := json.Unmarshal([]byte(blob), &choices); err != nil {
		return WizardProgress{}, false, fmt.Errorf("decode choices: %w", err)
	}
	return WizardProgress{
		Step:      wizard.Step(step),
		Choices:   choices,
		UpdatedAt: time.Unix(0, ts),
	}, true, nil
}

// inTx runs fn in a transaction, retrying the whole transaction while
// another writer holds the database lock.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	p := retry.DefaultPolicy
	p.Retryable = isBusy
	return retry.Do(ctx, p, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
