/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements inventory.Store and inventory.TxStore using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  resources:     Bookable inventory units with capacity and timezone
  demand:        One row per demand interval (never one row per day)
  blocked_dates: One row per operator override, keyed (resource_id, date)
  cancellations: Immutable refund audit rows, unique per booking

CONSTRAINTS AS INVARIANTS:
  - cancellations.booking_id UNIQUE: at most one CancellationRecord per
    booking, even across concurrent retries. The resulting constraint
    error is mapped to inventory.ErrDuplicateCancellation.
  - blocked_dates PRIMARY KEY (resource_id, date): Set is an upsert.

TYPED FILTERS:
  FindDemand translates inventory.DemandFilter into a parameterized
  WHERE clause in one place (buildDemandWhere). No caller-supplied SQL
  fragments, no string concatenation of values.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus WAL mode for better reader
  concurrency. Lock/busy errors surface as inventory.ErrConflict, which
  the booking service retries.

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/inventory"
)

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

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
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		capacity_total INTEGER NOT NULL DEFAULT 0,
		slot_times_json TEXT,
		timezone TEXT NOT NULL DEFAULT '',
		owner_id TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- One row per demand interval, never one row per day.
	CREATE TABLE IF NOT EXISTS demand (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		slot INTEGER NOT NULL DEFAULT -1,
		party_size INTEGER NOT NULL,
		status TEXT NOT NULL,
		total_price TEXT NOT NULL,
		contact TEXT,
		created_at TEXT NOT NULL
	);

	-- Overlap scans for one resource's window (hot path)
	CREATE INDEX IF NOT EXISTS idx_demand_resource_dates
		ON demand(resource_id, start_date, end_date);

	-- For the completion sweep
	CREATE INDEX IF NOT EXISTS idx_demand_status
		ON demand(status);

	CREATE TABLE IF NOT EXISTS blocked_dates (
		resource_id TEXT NOT NULL,
		date TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (resource_id, date)
	);

	-- CRITICAL: booking_id is UNIQUE so a booking can never acquire a
	-- second cancellation record, concurrent retries included
	CREATE TABLE IF NOT EXISTS cancellations (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL UNIQUE,
		cancelled_at TEXT NOT NULL,
		event_date TEXT NOT NULL,
		fraction TEXT NOT NULL,
		refund_amount TEXT NOT NULL,
		reason TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so the same statement helpers
// serve both direct calls and transactional views.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// RESOURCES
// =============================================================================

func (s *Store) SaveResource(ctx context.Context, r inventory.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveResource(ctx, s.db, r)
}

func saveResource(ctx context.Context, q querier, r inventory.Resource) error {
	slotsJSON, _ := json.Marshal(r.SlotTimes)

	query := `
		INSERT INTO resources (id, kind, name, capacity_total, slot_times_json, timezone, owner_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			capacity_total = excluded.capacity_total,
			slot_times_json = excluded.slot_times_json,
			timezone = excluded.timezone,
			owner_id = excluded.owner_id,
			active = excluded.active
	`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, query,
		r.ID, r.Kind, r.Name, r.CapacityTotal, string(slotsJSON),
		r.Timezone, r.OwnerID, r.Active, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err, fmt.Errorf("failed to save resource: %w", err))
	}
	return nil
}

func (s *Store) GetResource(ctx context.Context, id inventory.ResourceID) (*inventory.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getResource(ctx, s.db, id)
}

func getResource(ctx context.Context, q querier, id inventory.ResourceID) (*inventory.Resource, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, kind, name, capacity_total, slot_times_json, timezone, owner_id, active, created_at
		 FROM resources WHERE id = ?`, id)

	r, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListResources(ctx context.Context) ([]inventory.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listResources(ctx, s.db)
}

func listResources(ctx context.Context, q querier) ([]inventory.Resource, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, kind, name, capacity_total, slot_times_json, timezone, owner_id, active, created_at
		 FROM resources ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []inventory.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanResource(row rowScanner) (*inventory.Resource, error) {
	var (
		r         inventory.Resource
		slotsJSON sql.NullString
		ownerID   sql.NullString
		createdAt string
	)
	err := row.Scan(&r.ID, &r.Kind, &r.Name, &r.CapacityTotal, &slotsJSON,
		&r.Timezone, &ownerID, &r.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	if slotsJSON.Valid && slotsJSON.String != "" && slotsJSON.String != "null" {
		if err := json.Unmarshal([]byte(slotsJSON.String), &r.SlotTimes); err != nil {
			return nil, fmt.Errorf("failed to parse slot times: %w", err)
		}
	}
	r.OwnerID = ownerID.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// =============================================================================
// DEMAND
// =============================================================================

func (s *Store) InsertDemand(ctx context.Context, d inventory.Demand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertDemand(ctx, s.db, d)
}

func insertDemand(ctx context.Context, q querier, d inventory.Demand) error {
	query := `
		INSERT INTO demand (id, resource_id, start_date, end_date, slot, party_size, status, total_price, contact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, query,
		d.ID, d.ResourceID, d.Start.String(), d.End.String(), d.Slot,
		d.PartySize, d.Status, d.TotalPrice.String(), d.Contact,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err, fmt.Errorf("failed to insert demand: %w", err))
	}
	return nil
}

func (s *Store) GetDemand(ctx context.Context, id inventory.DemandID) (*inventory.Demand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getDemand(ctx, s.db, id)
}

func getDemand(ctx context.Context, q querier, id inventory.DemandID) (*inventory.Demand, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, resource_id, start_date, end_date, slot, party_size, status, total_price, contact, created_at
		 FROM demand WHERE id = ?`, id)

	d, err := scanDemand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) FindDemand(ctx context.Context, f inventory.DemandFilter) ([]inventory.Demand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findDemand(ctx, s.db, f)
}

func findDemand(ctx context.Context, q querier, f inventory.DemandFilter) ([]inventory.Demand, error) {
	where, args := buildDemandWhere(f)

	query := `
		SELECT id, resource_id, start_date, end_date, slot, party_size, status, total_price, contact, created_at
		FROM demand ` + where + `
		ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query demand: %w", err)
	}
	defer rows.Close()

	var out []inventory.Demand
	for rows.Next() {
		d, err := scanDemand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// buildDemandWhere translates the typed filter into a parameterized
// WHERE clause. This is the single point where filtering meets SQL.
//
// The effective exclusive end of a demand row is end_date for stays and
// start_date + 1 day for point demand (tours, slots). Date columns hold
// YYYY-MM-DD strings, so lexicographic comparison is date comparison.
func buildDemandWhere(f inventory.DemandFilter) (string, []any) {
	const effectiveEnd = `(CASE WHEN end_date > start_date THEN end_date ELSE date(start_date, '+1 day') END)`

	var clauses []string
	var args []any

	if f.ResourceID != "" {
		clauses = append(clauses, "resource_id = ?")
		args = append(args, f.ResourceID)
	}
	if len(f.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Statuses)), ", ")
		clauses = append(clauses, "status IN ("+placeholders+")")
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	if f.Overlapping != nil {
		clauses = append(clauses, "start_date <= ?", effectiveEnd+" > ?")
		args = append(args, f.Overlapping.End.String(), f.Overlapping.Start.String())
	}
	if f.ElapsedBefore != nil {
		clauses = append(clauses, effectiveEnd+" <= ?")
		args = append(args, f.ElapsedBefore.String())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanDemand(row rowScanner) (*inventory.Demand, error) {
	var (
		d          inventory.Demand
		start, end string
		price      string
		contact    sql.NullString
		createdAt  string
	)
	err := row.Scan(&d.ID, &d.ResourceID, &start, &end, &d.Slot,
		&d.PartySize, &d.Status, &price, &contact, &createdAt)
	if err != nil {
		return nil, err
	}

	if d.Start, err = inventory.ParseDate(start); err != nil {
		return nil, fmt.Errorf("failed to scan demand start: %w", err)
	}
	if d.End, err = inventory.ParseDate(end); err != nil {
		return nil, fmt.Errorf("failed to scan demand end: %w", err)
	}
	if d.TotalPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("failed to scan demand price: %w", err)
	}
	d.Contact = contact.String
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &d, nil
}

func (s *Store) TransitionDemand(ctx context.Context, id inventory.DemandID, from, to inventory.DemandStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transitionDemand(ctx, s.db, id, from, to)
}

// transitionDemand is a compare-and-set on demand.status. The WHERE
// clause carries the expected current status, so a lost race shows up
// as zero affected rows instead of a silent double transition.
func transitionDemand(ctx context.Context, q querier, id inventory.DemandID, from, to inventory.DemandStatus) error {
	result, err := q.ExecContext(ctx,
		"UPDATE demand SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return mapError(err, fmt.Errorf("failed to transition demand: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Distinguish "absent" from "status moved under us".
	var current string
	err = q.QueryRowContext(ctx, "SELECT status FROM demand WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return inventory.ErrNotFound
	}
	if err != nil {
		return err
	}
	return inventory.ErrConflict
}

// =============================================================================
// BLOCKED DATES
// =============================================================================

func (s *Store) SetBlockedDate(ctx context.Context, b inventory.BlockedDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setBlockedDate(ctx, s.db, b)
}

func setBlockedDate(ctx context.Context, q querier, b inventory.BlockedDate) error {
	query := `
		INSERT INTO blocked_dates (resource_id, date, reason, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(resource_id, date) DO UPDATE SET
			reason = excluded.reason
	`
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, query,
		b.ResourceID, b.Date.String(), b.Reason, createdAt.Format(time.RFC3339))
	if err != nil {
		return mapError(err, fmt.Errorf("failed to set blocked date: %w", err))
	}
	return nil
}

func (s *Store) ClearBlockedDate(ctx context.Context, id inventory.ResourceID, date inventory.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clearBlockedDate(ctx, s.db, id, date)
}

func clearBlockedDate(ctx context.Context, q querier, id inventory.ResourceID, date inventory.Date) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM blocked_dates WHERE resource_id = ? AND date = ?", id, date.String())
	if err != nil {
		return mapError(err, fmt.Errorf("failed to clear blocked date: %w", err))
	}
	return nil
}

func (s *Store) BlockedDates(ctx context.Context, id inventory.ResourceID, from, to inventory.Date) ([]inventory.BlockedDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return blockedDates(ctx, s.db, id, from, to)
}

func blockedDates(ctx context.Context, q querier, id inventory.ResourceID, from, to inventory.Date) ([]inventory.BlockedDate, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT resource_id, date, reason, created_at
		 FROM blocked_dates
		 WHERE resource_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		id, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked dates: %w", err)
	}
	defer rows.Close()

	var out []inventory.BlockedDate
	for rows.Next() {
		var (
			b         inventory.BlockedDate
			date      string
			reason    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&b.ResourceID, &date, &reason, &createdAt); err != nil {
			return nil, err
		}
		if b.Date, err = inventory.ParseDate(date); err != nil {
			return nil, err
		}
		b.Reason = reason.String
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// CANCELLATIONS
// =============================================================================

func (s *Store) InsertCancellation(ctx context.Context, rec inventory.CancellationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCancellation(ctx, s.db, rec)
}

func insertCancellation(ctx context.Context, q querier, rec inventory.CancellationRecord) error {
	query := `
		INSERT INTO cancellations (id, booking_id, cancelled_at, event_date, fraction, refund_amount, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		rec.ID, rec.BookingID, rec.CancelledAt.UTC().Format(time.RFC3339),
		rec.EventDate.String(), rec.Fraction.String(), rec.RefundAmount.String(), rec.Reason,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return inventory.ErrDuplicateCancellation
		}
		return mapError(err, fmt.Errorf("failed to insert cancellation: %w", err))
	}
	return nil
}

func (s *Store) GetCancellation(ctx context.Context, bookingID inventory.DemandID) (*inventory.CancellationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCancellation(ctx, s.db, bookingID)
}

func getCancellation(ctx context.Context, q querier, bookingID inventory.DemandID) (*inventory.CancellationRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, booking_id, cancelled_at, event_date, fraction, refund_amount, reason
		 FROM cancellations WHERE booking_id = ?`, bookingID)

	var (
		rec         inventory.CancellationRecord
		cancelledAt string
		eventDate   string
		fraction    string
		amount      string
		reason      sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.BookingID, &cancelledAt, &eventDate, &fraction, &amount, &reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.CancelledAt, _ = time.Parse(time.RFC3339, cancelledAt)
	if rec.EventDate, err = inventory.ParseDate(eventDate); err != nil {
		return nil, err
	}
	if rec.Fraction, err = decimal.NewFromString(fraction); err != nil {
		return nil, err
	}
	if rec.RefundAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	rec.Reason = reason.String
	return &rec, nil
}

// =============================================================================
// TRANSACTIONS (inventory.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. Rollback
// on error, commit on success.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapError(err, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// txStore runs every statement against a single *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveResource(ctx context.Context, r inventory.Resource) error {
	return saveResource(ctx, ts.tx, r)
}

func (ts *txStore) GetResource(ctx context.Context, id inventory.ResourceID) (*inventory.Resource, error) {
	return getResource(ctx, ts.tx, id)
}

func (ts *txStore) ListResources(ctx context.Context) ([]inventory.Resource, error) {
	return listResources(ctx, ts.tx)
}

func (ts *txStore) InsertDemand(ctx context.Context, d inventory.Demand) error {
	return insertDemand(ctx, ts.tx, d)
}

func (ts *txStore) GetDemand(ctx context.Context, id inventory.DemandID) (*inventory.Demand, error) {
	return getDemand(ctx, ts.tx, id)
}

func (ts *txStore) FindDemand(ctx context.Context, f inventory.DemandFilter) ([]inventory.Demand, error) {
	return findDemand(ctx, ts.tx, f)
}

func (ts *txStore) TransitionDemand(ctx context.Context, id inventory.DemandID, from, to inventory.DemandStatus) error {
	return transitionDemand(ctx, ts.tx, id, from, to)
}

func (ts *txStore) SetBlockedDate(ctx context.Context, b inventory.BlockedDate) error {
	return setBlockedDate(ctx, ts.tx, b)
}

func (ts *txStore) ClearBlockedDate(ctx context.Context, id inventory.ResourceID, date inventory.Date) error {
	return clearBlockedDate(ctx, ts.tx, id, date)
}

func (ts *txStore) BlockedDates(ctx context.Context, id inventory.ResourceID, from, to inventory.Date) ([]inventory.BlockedDate, error) {
	return blockedDates(ctx, ts.tx, id, from, to)
}

func (ts *txStore) InsertCancellation(ctx context.Context, rec inventory.CancellationRecord) error {
	return insertCancellation(ctx, ts.tx, rec)
}

func (ts *txStore) GetCancellation(ctx context.Context, bookingID inventory.DemandID) (*inventory.CancellationRecord, error) {
	return getCancellation(ctx, ts.tx, bookingID)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// mapError classifies driver errors: lock contention becomes the
// retryable inventory.ErrConflict, everything else keeps the wrapped
// fallback.
func mapError(err error, fallback error) error {
	if err == nil {
		return nil
	}
	if isBusyError(err) {
		return fmt.Errorf("%w: %v", inventory.ErrConflict, err)
	}
	return fallback
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
