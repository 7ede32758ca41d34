package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/errors"
)

// storedTimeLayout is how timestamps are written to TEXT columns (UTC).
const storedTimeLayout = "2006-01-02 15:04:05"

const countryColumns = `
	id, name, capital, region, population, currency_code,
	exchange_rate, estimated_gdp, flag_url,
	last_refreshed_at, created_at, updated_at`

// Sort selects the ordering for All.
type Sort string

const (
	SortName    Sort = ""
	SortGDPDesc Sort = "gdp_desc"
)

// Filters narrows All. Empty fields are ignored.
type Filters struct {
	Region   string
	Currency string
}

// countryRow mirrors the countries table for sqlx scanning.
type countryRow struct {
	ID              int64           `db:"id"`
	Name            string          `db:"name"`
	Capital         sql.NullString  `db:"capital"`
	Region          sql.NullString  `db:"region"`
	Population      int64           `db:"population"`
	CurrencyCode    sql.NullString  `db:"currency_code"`
	ExchangeRate    sql.NullFloat64 `db:"exchange_rate"`
	EstimatedGDP    sql.NullFloat64 `db:"estimated_gdp"`
	FlagURL         sql.NullString  `db:"flag_url"`
	LastRefreshedAt string          `db:"last_refreshed_at"`
	CreatedAt       string          `db:"created_at"`
	UpdatedAt       string          `db:"updated_at"`
}

func (r *countryRow) record() *country.Record {
	return &country.Record{
		ID:              r.ID,
		Name:            r.Name,
		Capital:         fromNullString(r.Capital),
		Region:          fromNullString(r.Region),
		Population:      r.Population,
		CurrencyCode:    fromNullString(r.CurrencyCode),
		ExchangeRate:    fromNullFloat(r.ExchangeRate),
		EstimatedGDP:    fromNullFloat(r.EstimatedGDP),
		FlagURL:         fromNullString(r.FlagURL),
		LastRefreshedAt: parseStoredTime(r.LastRefreshedAt),
		CreatedAt:       parseStoredTime(r.CreatedAt),
		UpdatedAt:       parseStoredTime(r.UpdatedAt),
	}
}

// upsertCountry inserts rec or, when a row with the same normalized name
// exists, overwrites its mutable fields. The display name and created_at of
// the existing row are kept.
func upsertCountry(ctx context.Context, q sqlx.ExecerContext, rec *country.Record, now time.Time) (bool, error) {
	stamp := now.UTC().Format(storedTimeLayout)

	query := `
		INSERT INTO countries (
			name, name_norm, capital, region, population, currency_code,
			exchange_rate, estimated_gdp, flag_url,
			last_refreshed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name_norm) DO UPDATE SET
			capital           = excluded.capital,
			region            = excluded.region,
			population        = excluded.population,
			currency_code     = excluded.currency_code,
			exchange_rate     = excluded.exchange_rate,
			estimated_gdp     = excluded.estimated_gdp,
			flag_url          = excluded.flag_url,
			last_refreshed_at = excluded.last_refreshed_at,
			updated_at        = excluded.updated_at
	`

	res, err := q.ExecContext(ctx, query,
		rec.Name, rec.NameNorm(), toNullString(rec.Capital), toNullString(rec.Region),
		rec.Population, toNullString(rec.CurrencyCode),
		toNullFloat(rec.ExchangeRate), toNullFloat(rec.EstimatedGDP), toNullString(rec.FlagURL),
		stamp, stamp, stamp,
	)
	if err != nil {
		return false, errors.NewInternal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

func findCountryByName(ctx context.Context, q sqlx.QueryerContext, name string) (*country.Record, error) {
	var row countryRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT `+countryColumns+` FROM countries WHERE name_norm = ?`,
		country.Normalize(name),
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return row.record(), nil
}

func deleteCountryByName(ctx context.Context, q sqlx.ExecerContext, name string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM countries WHERE name_norm = ?`, country.Normalize(name))
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(name)
	}
	return nil
}

func listCountries(ctx context.Context, q sqlx.QueryerContext, f Filters, sort Sort) ([]country.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Region != "" {
		where = append(where, "region = ?")
		args = append(args, f.Region)
	}
	if f.Currency != "" {
		where = append(where, "currency_code = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(f.Currency)))
	}

	query := `SELECT ` + countryColumns + ` FROM countries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch sort {
	case SortGDPDesc:
		// SQLite sorts NULLs first ascending, so last descending
		query += " ORDER BY estimated_gdp DESC, name ASC"
	default:
		query += " ORDER BY name ASC"
	}

	return selectCountries(ctx, q, query, args...)
}

func topCountriesByGDP(ctx context.Context, q sqlx.QueryerContext, limit int) ([]country.Record, error) {
	query := `SELECT ` + countryColumns + ` FROM countries
		WHERE estimated_gdp IS NOT NULL
		ORDER BY estimated_gdp DESC, name ASC
		LIMIT ?`
	return selectCountries(ctx, q, query, limit)
}

func selectCountries(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]country.Record, error) {
	var rows []countryRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, errors.NewInternal(err)
	}
	records := make([]country.Record, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].record())
	}
	return records, nil
}

func countCountries(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM countries`); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func updateAPIStatus(ctx context.Context, q sqlx.ExtContext, now time.Time) error {
	total, err := countCountries(ctx, q)
	if err != nil {
		return err
	}
	stamp := now.UTC().Format(storedTimeLayout)

	_, err = q.ExecContext(ctx, `
		INSERT INTO api_status (id, total_countries, last_refreshed_at, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_countries   = excluded.total_countries,
			last_refreshed_at = excluded.last_refreshed_at,
			updated_at        = excluded.updated_at
	`, total, stamp, stamp)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func getAPIStatus(ctx context.Context, q sqlx.QueryerContext) (*country.Status, error) {
	var row struct {
		TotalCountries  int            `db:"total_countries"`
		LastRefreshedAt sql.NullString `db:"last_refreshed_at"`
	}
	err := sqlx.GetContext(ctx, q, &row, `SELECT total_countries, last_refreshed_at FROM api_status WHERE id = 1`)
	if stderrors.Is(err, sql.ErrNoRows) {
		return &country.Status{}, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	status := &country.Status{TotalCountries: row.TotalCountries}
	if row.LastRefreshedAt.Valid {
		formatted := FormatStatusTime(row.LastRefreshedAt.String)
		status.LastRefreshedAt = &formatted
	}
	return status, nil
}

// FormatStatusTime converts a stored timestamp to the wire format.
// Text that cannot be parsed is returned unchanged.
func FormatStatusTime(stored string) string {
	t, ok := parseTime(stored)
	if !ok {
		return stored
	}
	return t.Format(country.WireTimeLayout)
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{storedTimeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseStoredTime(s string) time.Time {
	t, _ := parseTime(s)
	return t
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}
