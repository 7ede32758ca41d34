package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/errors"
)

func TestDelete_AnyCase(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store,
		&country.Record{Name: "Japan", Population: 1},
		&country.Record{Name: "Jamaica", Population: 1},
	)

	out, err := Delete(ctx, store, DeleteInput{Name: "JAPAN"})
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.Equal(t, "Japan", out.Name)
	require.Equal(t, "Country 'Japan' deleted successfully", out.Message)

	_, err = Fetch(ctx, store, FetchInput{Name: "Japan"})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n, "exactly one row removed")
}

func TestDelete_NotFound(t *testing.T) {
	store := setupStore(t)

	_, err := Delete(context.Background(), store, DeleteInput{Name: "narnia"})
	require.True(t, errors.Is(err, errors.ErrNotFound), "err = %v", err)
}

func TestDelete_EmptyName(t *testing.T) {
	store := setupStore(t)

	_, err := Delete(context.Background(), store, DeleteInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "err = %v", err)
}
