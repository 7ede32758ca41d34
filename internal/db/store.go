package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/errors"
)

// Store is the country persistence layer. It is constructed once at startup
// and shared; all methods are safe for concurrent use.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore wraps an initialized database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock returns a copy of the store that stamps rows using now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Tx is a unit of work over the countries table. Upserts made through it
// become visible only after Commit.
type Tx struct {
	tx  *sqlx.Tx
	now func() time.Time
}

// Begin opens a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &Tx{tx: tx, now: s.now}, nil
}

// ErrTxAborted reports that the database ended the transaction on its own,
// so nothing written since Begin can be trusted to commit atomically.
var ErrTxAborted = stderrors.New("transaction aborted by the database")

// Upsert inserts or updates a country keyed by its case-insensitive name.
// Reports whether a row was affected.
//
// Each call runs under its own savepoint. A failed record is rolled back to
// that savepoint and the transaction stays usable; if the savepoint itself
// is gone, the error wraps ErrTxAborted.
func (t *Tx) Upsert(ctx context.Context, rec *country.Record) (bool, error) {
	if err := t.exec(ctx, "SAVEPOINT rec"); err != nil {
		if IsSystemic(err) {
			return false, err
		}
		return false, aborted(err, nil)
	}

	affected, err := upsertCountry(ctx, t.tx, rec, t.now())
	if err != nil {
		if IsSystemic(err) {
			return false, err
		}
		if rbErr := t.exec(ctx, "ROLLBACK TO rec"); rbErr != nil {
			return false, aborted(err, rbErr)
		}
		if relErr := t.exec(ctx, "RELEASE rec"); relErr != nil {
			return false, aborted(err, relErr)
		}
		return false, err
	}

	if err := t.exec(ctx, "RELEASE rec"); err != nil {
		return false, aborted(err, nil)
	}
	return affected, nil
}

func (t *Tx) exec(ctx context.Context, stmt string) error {
	if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func aborted(err, cleanupErr error) error {
	if cleanupErr == nil {
		return errors.NewInternal(fmt.Errorf("%w: %v", ErrTxAborted, err))
	}
	return errors.NewInternal(fmt.Errorf("%w: %v (savepoint: %v)", ErrTxAborted, err, cleanupErr))
}

// Commit makes the transaction's writes visible.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Rollback discards the transaction. Rolling back an already finished
// transaction is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !stderrors.Is(err, sql.ErrTxDone) {
		return errors.NewInternal(err)
	}
	return nil
}

// FindByName returns the country whose name matches case-insensitively.
// Returns NOT_FOUND if none exists.
func (s *Store) FindByName(ctx context.Context, name string) (*country.Record, error) {
	return findCountryByName(ctx, s.db, name)
}

// DeleteByName removes exactly one country. Returns NOT_FOUND if none exists.
func (s *Store) DeleteByName(ctx context.Context, name string) error {
	return deleteCountryByName(ctx, s.db, name)
}

// All lists countries matching f in the given order.
func (s *Store) All(ctx context.Context, f Filters, sort Sort) ([]country.Record, error) {
	return listCountries(ctx, s.db, f, sort)
}

// TopByGDP returns at most limit countries that have an estimated GDP,
// highest first.
func (s *Store) TopByGDP(ctx context.Context, limit int) ([]country.Record, error) {
	return topCountriesByGDP(ctx, s.db, limit)
}

// Count returns the number of cached countries.
func (s *Store) Count(ctx context.Context) (int, error) {
	return countCountries(ctx, s.db)
}

// UpdateAPIStatus recomputes the total and stamps the refresh time on the
// singleton status row, creating it on first use.
func (s *Store) UpdateAPIStatus(ctx context.Context) error {
	return updateAPIStatus(ctx, s.db, s.now())
}

// GetAPIStatus returns the singleton status. Before the first refresh it
// reports zero countries and no refresh time.
func (s *Store) GetAPIStatus(ctx context.Context) (*country.Status, error) {
	return getAPIStatus(ctx, s.db)
}

// Ping checks that the database answers queries.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// IsSystemic reports whether err invalidates the whole unit of work rather
// than a single record: a cancelled or expired context, a transaction or
// connection that is no longer usable, or an SQLite failure of the database
// itself (disk full, I/O, out of memory, locked, corrupt, interrupted).
func IsSystemic(err error) bool {
	if stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, sql.ErrTxDone) ||
		stderrors.Is(err, sql.ErrConnDone) ||
		stderrors.Is(err, driver.ErrBadConn) ||
		stderrors.Is(err, ErrTxAborted) {
		return true
	}
	var sqliteErr *sqlite.Error
	if stderrors.As(err, &sqliteErr) {
		return systemicCode(sqliteErr.Code())
	}
	return false
}

// systemicCode reports whether an SQLite result code (primary or extended)
// describes the database rather than the statement.
func systemicCode(code int) bool {
	switch code & 0xff {
	case sqlite3.SQLITE_FULL,
		sqlite3.SQLITE_IOERR,
		sqlite3.SQLITE_NOMEM,
		sqlite3.SQLITE_BUSY,
		sqlite3.SQLITE_LOCKED,
		sqlite3.SQLITE_CORRUPT,
		sqlite3.SQLITE_INTERRUPT:
		return true
	}
	return false
}
