package main

import (
	"fmt"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/hpungsan/countrycache/internal/config"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/logging"
	"github.com/hpungsan/countrycache/internal/ops"
	"github.com/hpungsan/countrycache/internal/report"
	"github.com/hpungsan/countrycache/internal/source"
)

// appEnv holds the process-wide dependencies shared by every command.
type appEnv struct {
	baseDir   string
	cfg       *config.Config
	logger    *zap.Logger
	database  *sqlx.DB
	store     *db.Store
	renderer  *report.Renderer
	refresher *ops.Refresher
}

func (e *appEnv) ready() bool {
	return e.store != nil
}

// open loads configuration from baseDir and wires the store, upstream
// client, renderer and refresher.
func (e *appEnv) open(baseDir string) error {
	for _, path := range []string{".env", filepath.Join(baseDir, ".env")} {
		if err := config.LoadDotEnv(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Path: cfg.LogPath})

	database, err := db.Init(baseDir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	renderer, err := report.NewRenderer(cfg.ResolveCacheDir(baseDir))
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	store := db.NewStore(database)
	client := source.New(source.Config{
		CountriesURL:     cfg.CountriesURL,
		ExchangeRatesURL: cfg.ExchangeRatesURL,
		ConnectTimeout:   cfg.ConnectTimeout(),
		RequestTimeout:   cfg.RequestTimeout(),
	}, nil, logger.Named("source"))

	e.baseDir = baseDir
	e.cfg = cfg
	e.logger = logger
	e.database = database
	e.store = store
	e.renderer = renderer
	e.refresher = ops.NewRefresher(client, store, nil,
		ops.WithReports(report.NewGenerator(store, renderer)),
		ops.WithLogger(logger.Named("refresh")),
	)

	logger.Debug("environment ready",
		zap.String("data_dir", baseDir),
		zap.String("cache_dir", renderer.Dir()))
	return nil
}

// Close releases the database and flushes the logger. Safe to call twice.
func (e *appEnv) Close() {
	if e.database != nil {
		e.database.Close()
		e.database = nil
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}
