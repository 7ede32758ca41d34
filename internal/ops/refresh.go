package ops

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/errors"
	"github.com/hpungsan/countrycache/internal/metrics"
)

// RefreshMessage is returned on every successful refresh.
const RefreshMessage = "Countries data refreshed successfully"

// Source supplies raw upstream data.
type Source interface {
	FetchCountries(ctx context.Context) ([]country.Raw, error)
	FetchExchangeRates(ctx context.Context) (map[string]float64, error)
}

// ReportGenerator regenerates the summary artifact after a refresh.
type ReportGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// RefreshOutput summarizes a completed refresh.
type RefreshOutput struct {
	Message        string `json:"message"`
	RunID          string `json:"run_id"`
	Processed      int    `json:"processed"`
	Errors         int    `json:"errors"`
	TotalCountries int    `json:"total_countries"`
	Timestamp      string `json:"timestamp"`
}

// Refresher runs the refresh pipeline: fetch both sources, transform and
// upsert every record in one transaction, update the status row, then
// regenerate the summary image. Runs are serialized; a second caller waits
// for the first to finish and then performs its own full refresh.
type Refresher struct {
	mu sync.Mutex

	source      Source
	store       *db.Store
	transformer *country.Transformer
	reports     ReportGenerator
	logger      *zap.Logger
	now         func() time.Time
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithReports enables summary regeneration after each successful refresh.
func WithReports(g ReportGenerator) RefresherOption {
	return func(r *Refresher) { r.reports = g }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

// WithClock overrides the clock used for the summary timestamp.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

// NewRefresher wires the pipeline. A nil transformer gets a randomly seeded one.
func NewRefresher(source Source, store *db.Store, transformer *country.Transformer, opts ...RefresherOption) *Refresher {
	if transformer == nil {
		transformer = country.NewTransformer()
	}
	r := &Refresher{
		source:      source,
		store:       store,
		transformer: transformer,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh runs one full refresh.
//
// A source failure aborts before any write and surfaces as
// SOURCE_UNAVAILABLE. Malformed or unstorable individual records are counted
// in Errors and skipped. Anything that invalidates the transaction as a
// whole rolls it back and surfaces as INTERNAL. Summary regeneration
// failures are logged only.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	runID := generateRunID()
	log := r.logger.With(zap.String("run_id", runID))
	log.Info("refresh started")

	raws, err := r.source.FetchCountries(ctx)
	if err != nil {
		return nil, r.abort(log, start, err)
	}
	rates, err := r.source.FetchExchangeRates(ctx)
	if err != nil {
		return nil, r.abort(log, start, err)
	}
	log.Debug("sources fetched", zap.Int("countries", len(raws)), zap.Int("rates", len(rates)))

	processed, failed, err := r.apply(ctx, log, raws, rates)
	if err != nil {
		return nil, r.abort(log, start, err)
	}

	if err := r.store.UpdateAPIStatus(ctx); err != nil {
		return nil, r.abort(log, start, err)
	}
	total, err := r.store.Count(ctx)
	if err != nil {
		return nil, r.abort(log, start, err)
	}

	r.regenerateReport(ctx, log)

	elapsed := time.Since(start)
	metrics.RecordRefresh(metrics.OutcomeSuccess, processed, failed, elapsed)
	log.Info("refresh completed",
		zap.Int("processed", processed),
		zap.Int("errors", failed),
		zap.Int("total_countries", total),
		zap.Duration("elapsed", elapsed))

	return &RefreshOutput{
		Message:        RefreshMessage,
		RunID:          runID,
		Processed:      processed,
		Errors:         failed,
		TotalCountries: total,
		Timestamp:      r.now().UTC().Format(country.WireTimeLayout),
	}, nil
}

// apply writes every record inside one transaction and commits it.
func (r *Refresher) apply(ctx context.Context, log *zap.Logger, raws []country.Raw, rates map[string]float64) (int, int, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil {
			log.Error("rollback failed", zap.Error(err))
		}
	}()

	processed, failed := 0, 0
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return 0, 0, errors.NewInternal(err)
		}

		rec, err := r.transformer.Transform(raw, rates)
		if err != nil {
			failed++
			log.Warn("skipping malformed country", zap.Int("index", i), zap.Error(err))
			continue
		}

		if _, err := tx.Upsert(ctx, rec); err != nil {
			if db.IsSystemic(err) {
				return 0, 0, err
			}
			failed++
			log.Warn("failed to store country", zap.String("name", rec.Name), zap.Error(err))
			continue
		}
		processed++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	committed = true
	return processed, failed, nil
}

func (r *Refresher) regenerateReport(ctx context.Context, log *zap.Logger) {
	if r.reports == nil {
		return
	}
	path, err := r.reports.Generate(ctx)
	if err != nil {
		metrics.RecordReportFailure()
		log.Warn("summary image regeneration failed", zap.Error(err))
		return
	}
	log.Debug("summary image regenerated", zap.String("path", path))
}

func (r *Refresher) abort(log *zap.Logger, start time.Time, err error) error {
	appErr := errors.As(err)
	outcome := metrics.OutcomeFailed
	if appErr.Code == errors.ErrSourceUnavailable {
		outcome = metrics.OutcomeSourceUnavailable
	}
	metrics.RecordRefresh(outcome, 0, 0, time.Since(start))
	log.Error("refresh aborted", zap.String("code", string(appErr.Code)), zap.Error(err))
	return appErr
}

// generateRunID generates a new ULID for tagging a refresh run.
func generateRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
