package signup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"frontporch/internal/adapters/storage"
	domain "frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
)

// querier is the subset shared by storage.SQLDB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectColumns = "SELECT id, day, hour, name, created_at FROM signup"

// dayOrder sorts rows by weekday position rather than alphabetically.
var dayOrder = func() string {
	var b strings.Builder
	b.WriteString("CASE day")
	for i, d := range slot.Days {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", d, i)
	}
	b.WriteString(" ELSE 99 END")
	return b.String()
}()

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    storage.SQLDB
	locks *slotLocks
}

// NewSQLiteStore creates a new SignupStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, locks: newSlotLocks()}
}

// Insert persists a new Signup and returns it with its assigned ID.
// PRE: value has been validated
// POST: Row inserted; returned ID is unique and never reused
func (s *SQLiteStore) Insert(ctx context.Context, value domain.Signup) (domain.Signup, error) {
	return insert(ctx, s.db, value)
}

// GetByID retrieves a Signup by its ID.
// PRE: none
// POST: Returns the entity or an error wrapping domain.ErrSignupNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Signup, error) {
	return getByID(ctx, s.db, id)
}

// ListAll returns every signup ordered by weekday, hour, then id.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Signup, error) {
	return list(ctx, s.db, selectColumns+" ORDER BY "+dayOrder+", hour, id")
}

// ListBySlot returns the signups of one slot in booking order.
func (s *SQLiteStore) ListBySlot(ctx context.Context, sl slot.Slot) ([]domain.Signup, error) {
	return list(ctx, s.db, selectColumns+" WHERE day = ? AND hour = ? ORDER BY id", sl.Day, sl.Hour)
}

// Delete removes a Signup. Deleting a missing id is not an error.
// PRE: none
// POST: No row with id exists; reports whether one was removed
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM signup WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateSlot moves a Signup without checking capacity. Use WithinSlots for checked moves.
func (s *SQLiteStore) UpdateSlot(ctx context.Context, id int64, target slot.Slot) error {
	return updateSlot(ctx, s.db, id, target)
}

// Count returns the total number of signups.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM signup").Scan(&count)
	return count, err
}

// CountByDay returns the number of signups per day; days without signups are absent.
func (s *SQLiteStore) CountByDay(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT day, COUNT(*) FROM signup GROUP BY day")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

// CountByHour returns the number of signups per hour; hours without signups are absent.
func (s *SQLiteStore) CountByHour(ctx context.Context) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT hour, COUNT(*) FROM signup GROUP BY hour")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var hour, n int
		if err := rows.Scan(&hour, &n); err != nil {
			return nil, err
		}
		counts[hour] = n
	}
	return counts, rows.Err()
}

// WithinSlots runs fn while holding the in-process locks for slots and one
// database write transaction. fn's reads and writes commit together or not at all.
// PRE: slots are the positions fn reads or writes
// POST: Transaction committed if fn returns nil, rolled back otherwise
// INVARIANT: No two WithinSlots calls sharing a slot overlap in this process
func (s *SQLiteStore) WithinSlots(ctx context.Context, slots []slot.Slot, fn func(tx Tx) error) error {
	unlock := s.locks.lock(slots)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin slot transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceAll deletes every signup and inserts values in one transaction.
// Admin rows are untouched.
// PRE: values have been validated
// POST: Table holds exactly values, or is unchanged if any insert fails
func (s *SQLiteStore) ReplaceAll(ctx context.Context, values []domain.Signup) error {
	unlock := s.locks.lock(allSlots())
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM signup"); err != nil {
		return fmt.Errorf("clear signups: %w", err)
	}
	for i, v := range values {
		if _, err := insert(ctx, tx, v); err != nil {
			return fmt.Errorf("insert signup %d of %d: %w", i+1, len(values), err)
		}
	}
	return tx.Commit()
}

// sqliteTx implements Tx on an open transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) CountInSlot(ctx context.Context, sl slot.Slot, excludeID int64) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM signup WHERE day = ? AND hour = ? AND id != ?",
		sl.Day, sl.Hour, excludeID,
	).Scan(&count)
	return count, err
}

func (t *sqliteTx) Insert(ctx context.Context, value domain.Signup) (domain.Signup, error) {
	return insert(ctx, t.tx, value)
}

func (t *sqliteTx) GetByID(ctx context.Context, id int64) (domain.Signup, error) {
	return getByID(ctx, t.tx, id)
}

func (t *sqliteTx) UpdateSlot(ctx context.Context, id int64, target slot.Slot) error {
	return updateSlot(ctx, t.tx, id, target)
}

func insert(ctx context.Context, q querier, value domain.Signup) (domain.Signup, error) {
	if value.CreatedAt.IsZero() {
		value.CreatedAt = time.Now().UTC()
	}
	res, err := q.ExecContext(ctx,
		"INSERT INTO signup (day, hour, name, created_at) VALUES (?, ?, ?, ?)",
		value.Day, value.Hour, value.Name, value.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.Signup{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Signup{}, err
	}
	value.ID = id
	return value, nil
}

func getByID(ctx context.Context, q querier, id int64) (domain.Signup, error) {
	row := q.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	entity, err := scanSignup(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Signup{}, fmt.Errorf("signup %d: %w", id, domain.ErrSignupNotFound)
	}
	return entity, err
}

func updateSlot(ctx context.Context, q querier, id int64, target slot.Slot) error {
	res, err := q.ExecContext(ctx, "UPDATE signup SET day = ?, hour = ? WHERE id = ?", target.Day, target.Hour, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("signup %d: %w", id, domain.ErrSignupNotFound)
	}
	return nil
}

func list(ctx context.Context, q querier, query string, args ...any) ([]domain.Signup, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Signup
	for rows.Next() {
		entity, err := scanSignup(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// scanSignup extracts a Signup from a row scanner function.
func scanSignup(scan func(dest ...any) error) (domain.Signup, error) {
	var entity domain.Signup
	var createdAt string
	if err := scan(&entity.ID, &entity.Day, &entity.Hour, &entity.Name, &createdAt); err != nil {
		return domain.Signup{}, err
	}
	entity.CreatedAt, _ = parseTime(createdAt)
	return entity, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}

// slotLocks hands out one mutex per slot key.
type slotLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutexes for slots in key order and returns the release func.
// Key ordering keeps two multi-slot callers from deadlocking.
func (l *slotLocks) lock(slots []slot.Slot) func() {
	keys := make([]string, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, sl := range slots {
		k := sl.Key()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		m := l.get(k)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *slotLocks) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// allSlots returns every grid position, available or not.
func allSlots() []slot.Slot {
	hours := slot.Hours()
	out := make([]slot.Slot, 0, len(slot.Days)*len(hours))
	for _, d := range slot.Days {
		for _, h := range hours {
			out = append(out, slot.Slot{Day: d, Hour: h})
		}
	}
	return out
}
