package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/arbor-labs/arbor-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/arbor-labs/arbor-cli/internal/core/domain"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.EventStore = (*Store)(nil)

// Store is the SQLite-backed implementation of driven.EventStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite event store at the specified data
// directory. If dataDir is empty, defaults to ~/.arbor/data/outline.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".arbor", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "outline.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Append persists all events in one transaction. A non-empty batchID
// stamps every event; an empty batchID preserves the ids the events
// already carry (remote-delivered batches). Either every event commits or
// none do; failures wrap domain.ErrDurableWrite so callers know the
// projection must not be touched.
func (s *Store) Append(ctx context.Context, events []domain.Event, batchID string) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrDurableWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (sequence_ts, kind, payload, batch_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %v", domain.ErrDurableWrite, err)
	}
	defer stmt.Close()

	for _, e := range events {
		id := e.BatchID
		if batchID != "" {
			id = batchID
		}
		if _, err := stmt.ExecContext(ctx, e.Sequence, string(e.Kind), string(e.Payload), id); err != nil {
			return fmt.Errorf("%w: inserting event: %v", domain.ErrDurableWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", domain.ErrDurableWrite, err)
	}
	return nil
}

// FetchAll returns every event sorted by sequence ascending, ties broken
// by insertion order.
func (s *Store) FetchAll(ctx context.Context) ([]domain.Event, error) {
	return s.query(ctx, `
		SELECT sequence_ts, kind, payload, batch_id
		FROM events ORDER BY sequence_ts, id
	`)
}

// FetchSince returns events strictly after the cutoff, sorted ascending.
func (s *Store) FetchSince(ctx context.Context, sequence int64) ([]domain.Event, error) {
	return s.query(ctx, `
		SELECT sequence_ts, kind, payload, batch_id
		FROM events WHERE sequence_ts > ? ORDER BY sequence_ts, id
	`, sequence)
}

// FetchByBatch returns all events sharing a batch id.
func (s *Store) FetchByBatch(ctx context.Context, batchID string) ([]domain.Event, error) {
	return s.query(ctx, `
		SELECT sequence_ts, kind, payload, batch_id
		FROM events WHERE batch_id = ?
	`, batchID)
}

// DeleteBatch physically removes every event with the given batch id.
func (s *Store) DeleteBatch(ctx context.Context, batchID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE batch_id = ?", batchID); err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	return nil
}

// DeleteAll wipes the entire log.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("wiping events: %w", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			e       domain.Event
			kind    string
			payload string
		)
		if err := rows.Scan(&e.Sequence, &kind, &payload, &e.BatchID); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.Payload = []byte(payload)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_events.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
