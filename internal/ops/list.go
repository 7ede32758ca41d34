package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Region   string `json:"region,omitempty"`
	Currency string `json:"currency,omitempty"`
	Sort     string `json:"sort,omitempty"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items []country.Record `json:"items"`
	Total int              `json:"total"`
}

// List returns cached countries, optionally filtered by exact region and
// currency code, ordered by name or by estimated GDP descending.
// The sort key is validated before the store is touched.
func List(ctx context.Context, store *db.Store, input ListInput) (*ListOutput, error) {
	sort, err := ParseSort(strings.TrimSpace(input.Sort))
	if err != nil {
		return nil, err
	}

	filters := db.Filters{
		Region:   strings.TrimSpace(input.Region),
		Currency: strings.ToUpper(strings.TrimSpace(input.Currency)),
	}

	items, err := store.All(ctx, filters, sort)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Items: items,
		Total: len(items),
	}, nil
}
