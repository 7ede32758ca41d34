package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/countrycache/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Name string `json:"name"`
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Delete permanently removes one country. The next refresh recreates it if
// the source still lists it.
func Delete(ctx context.Context, store *db.Store, input DeleteInput) (*DeleteOutput, error) {
	name, err := ValidateName(input.Name)
	if err != nil {
		return nil, err
	}

	// Resolve the stored display name for the response
	existing, err := store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := store.DeleteByName(ctx, existing.Name); err != nil {
		return nil, err
	}

	return &DeleteOutput{
		Deleted: true,
		Name:    existing.Name,
		Message: fmt.Sprintf("Country '%s' deleted successfully", existing.Name),
	}, nil
}
