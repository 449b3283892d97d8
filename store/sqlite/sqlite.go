/*
Package sqlite provides a SQLite-backed implementation of regler.BeregningStore.

PURPOSE:
  Persists calculations (value, legal reference, full trace, fingerprint) so
  that any figure can be explained and re-verified long after it was computed.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on beregninger
  - No DELETE statements on beregninger
  - A recalculation is a new row

KEY TABLES:
  beregninger: One row per calculation, trace stored as JSON

INDEXES:
  - idx_beregninger_logical: History of one logical rule (ListByLogicalID)
  - idx_beregninger_reference: Which calculations rest on a given provision

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/regelmotor.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - regler/store.go: Interface definition
  - regler/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/navikt/pensjon-etterlatte-saksbehandling-sub031/regler"
)

// timeLayout is fixed-width so that created_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements regler.BeregningStore using SQLite.
type Store struct {
	db *sql.DB
}

var _ regler.BeregningStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Calculations (append-only audit log)
	CREATE TABLE IF NOT EXISTS beregninger (
		id TEXT PRIMARY KEY,
		logical_id TEXT NOT NULL,
		ytelse TEXT NOT NULL,
		virkningstidspunkt TEXT NOT NULL,
		reference TEXT NOT NULL,
		value_json TEXT NOT NULL,
		trace_json TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_beregninger_logical
		ON beregninger(logical_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_beregninger_reference
		ON beregninger(reference);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BEREGNING STORE (regler.BeregningStore interface)
// =============================================================================

// Append adds a calculation to the log.
func (s *Store) Append(ctx context.Context, b regler.Beregning) error {
	traceJSON, err := json.Marshal(b.Trace)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	query := `
		INSERT INTO beregninger
		(id, logical_id, ytelse, virkningstidspunkt, reference, value_json, trace_json, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		b.ID,
		b.LogicalID,
		b.Ytelse,
		b.Virkningstidspunkt.String(),
		b.Reference,
		string(b.Value),
		string(traceJSON),
		b.Fingerprint,
		b.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return regler.ErrDuplicateBeregning
		}
		return fmt.Errorf("failed to append beregning: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, logical_id, ytelse, virkningstidspunkt, reference, value_json, trace_json, fingerprint, created_at
	FROM beregninger
`

// Get returns one calculation by id.
func (s *Store) Get(ctx context.Context, id string) (regler.Beregning, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	b, err := scanBeregning(row)
	if errors.Is(err, sql.ErrNoRows) {
		return regler.Beregning{}, regler.ErrBeregningNotFound
	}
	return b, err
}

// ListByLogicalID returns the calculation history of one logical rule, oldest first.
func (s *Store) ListByLogicalID(ctx context.Context, logicalID string) ([]regler.Beregning, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE logical_id = ? ORDER BY created_at, rowid`, logicalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query beregninger: %w", err)
	}
	defer rows.Close()

	var result []regler.Beregning
	for rows.Next() {
		b, err := scanBeregning(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanBeregning(row scanner) (regler.Beregning, error) {
	var (
		b                  regler.Beregning
		virkningstidspunkt string
		valueJSON          string
		traceJSON          string
		createdAt          string
	)

	err := row.Scan(
		&b.ID,
		&b.LogicalID,
		&b.Ytelse,
		&virkningstidspunkt,
		&b.Reference,
		&valueJSON,
		&traceJSON,
		&b.Fingerprint,
		&createdAt,
	)
	if err != nil {
		return regler.Beregning{}, err
	}

	if b.Virkningstidspunkt, err = regler.ParseDato(virkningstidspunkt); err != nil {
		return regler.Beregning{}, fmt.Errorf("beregning %s: %w", b.ID, err)
	}
	if b.Trace, err = regler.DecodeNode([]byte(traceJSON)); err != nil {
		return regler.Beregning{}, fmt.Errorf("beregning %s: %w", b.ID, err)
	}
	if b.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return regler.Beregning{}, fmt.Errorf("beregning %s: %w", b.ID, err)
	}
	b.Value = json.RawMessage(valueJSON)
	return b, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
