package ops

import (
	"context"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/db"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Name string `json:"name"`
}

// Fetch returns one country by case-insensitive name.
func Fetch(ctx context.Context, store *db.Store, input FetchInput) (*country.Record, error) {
	name, err := ValidateName(input.Name)
	if err != nil {
		return nil, err
	}
	return store.FindByName(ctx, name)
}
