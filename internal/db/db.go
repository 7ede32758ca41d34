package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hpungsan/countrycache/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DBFile is the database file name inside the base directory.
const DBFile = "countries.db"

// Init initializes the SQLite database at baseDir/countries.db.
// The baseDir parameter allows tests to use t.TempDir().
func Init(baseDir string) (*sqlx.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, DBFile)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sqlx.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sqlx.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: countries + singleton status row
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS countries (
		  id                INTEGER PRIMARY KEY AUTOINCREMENT,
		  name              TEXT NOT NULL,
		  name_norm         TEXT NOT NULL,
		  capital           TEXT,
		  region            TEXT,
		  population        INTEGER NOT NULL DEFAULT 0 CHECK (population >= 0),
		  currency_code     TEXT,
		  exchange_rate     REAL,
		  estimated_gdp     REAL,
		  flag_url          TEXT,
		  last_refreshed_at TEXT NOT NULL,
		  created_at        TEXT NOT NULL,
		  updated_at        TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_countries_name_norm
		ON countries(name_norm);

		CREATE INDEX IF NOT EXISTS idx_countries_region
		ON countries(region)
		WHERE region IS NOT NULL;

		CREATE INDEX IF NOT EXISTS idx_countries_currency_code
		ON countries(currency_code)
		WHERE currency_code IS NOT NULL;

		CREATE INDEX IF NOT EXISTS idx_countries_estimated_gdp
		ON countries(estimated_gdp DESC)
		WHERE estimated_gdp IS NOT NULL;

		CREATE TABLE IF NOT EXISTS api_status (
		  id                INTEGER PRIMARY KEY CHECK (id = 1),
		  total_countries   INTEGER NOT NULL DEFAULT 0,
		  last_refreshed_at TEXT,
		  updated_at        TEXT NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sqlx.DB) error {
	var journalMode string
	if err := db.Get(&journalMode, "PRAGMA journal_mode;"); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sqlx.DB) (int, error) {
	var version int
	if err := db.Get(&version, "PRAGMA user_version;"); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sqlx.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
