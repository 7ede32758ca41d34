package ops

import (
	"context"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/errors"
	"github.com/hpungsan/countrycache/internal/report"
)

// Status returns the refresh summary: total cached countries and the time of
// the last successful refresh.
func Status(ctx context.Context, store *db.Store) (*country.Status, error) {
	return store.GetAPIStatus(ctx)
}

// SummaryImage returns the path of the generated summary image, or
// NOT_FOUND when no refresh has produced one yet.
func SummaryImage(renderer *report.Renderer) (string, error) {
	path, ok := renderer.Path()
	if !ok {
		return "", errors.NewSummaryNotGenerated()
	}
	return path, nil
}
