package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/aristath/lotsched/internal/calendar"
	"github.com/aristath/lotsched/internal/scheduler"
)

var (
	// ErrLotNotFound is returned when a lot ID has no stored row.
	ErrLotNotFound = errors.New("lot not found")
	// ErrChangeNotFound is returned when a schedule change ID has no stored row.
	ErrChangeNotFound = errors.New("schedule change not found")
)

// IsConstraintViolation reports whether err comes from a failed SQLite
// constraint (unique, primary key, foreign key, not null, check). Such a
// write fails the same way every time it is repeated.
func IsConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// LotSummary is the lot row without its tasks, for listings.
type LotSummary struct {
	ID                   string
	Name                 string
	StartDate            civil.Date
	TargetCompletionDate civil.Date
	Status               scheduler.LotStatus
}

// Store defines the persistence interface for lots, their audit trail,
// inspections and the subcontractor table.
type Store interface {
	// Lot snapshots
	SaveLot(ctx context.Context, lot *scheduler.Lot) error
	GetLot(ctx context.Context, lotID string) (*scheduler.Lot, error)
	ListLots(ctx context.Context) ([]LotSummary, error)
	ListLotIDs(ctx context.Context, activeOnly bool) ([]string, error)
	DeleteLot(ctx context.Context, lotID string) error

	// Audit trail
	ListScheduleChanges(ctx context.Context, lotID string) ([]scheduler.ScheduleChange, error)
	MarkNotified(ctx context.Context, changeID string) error

	// Inspections
	SaveInspection(ctx context.Context, lotID string, insp scheduler.Inspection) error
	ListInspections(ctx context.Context, lotID string) ([]scheduler.Inspection, error)

	// Subcontractors
	SaveSubcontractor(ctx context.Context, sub scheduler.Subcontractor) error
	ListSubcontractors(ctx context.Context) ([]scheduler.Subcontractor, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// _pragma applies to every pooled connection, not just the first
	connStr := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	return openStore(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Each store gets its own named database shared by its connections.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:lotsched-%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	return openStore(ctx, connStr)
}

func openStore(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Allow 2 connections: one for primary queries, one for nested lookups
	db.SetMaxOpenConns(2)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) beginTx(ctx context.Context) (*sql.Tx, error) {
	// Serializable maps to BEGIN IMMEDIATE
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// dateValue stores an unset date as NULL.
func dateValue(d civil.Date) any {
	if !calendar.IsSet(d) {
		return nil
	}
	return d.String()
}

func parseDate(ns sql.NullString) (civil.Date, error) {
	if !ns.Valid || ns.String == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(ns.String)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid stored date %q: %w", ns.String, err)
	}
	return d, nil
}

// timestampLayout has fixed-width fractions so stored values sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timestampLayout)
}

func parseTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", ns.String, err)
	}
	return t, nil
}
