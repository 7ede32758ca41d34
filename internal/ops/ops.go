package ops

import (
	"strings"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/errors"
)

// SortGDPDesc is the only non-default sort key accepted by List.
const SortGDPDesc = string(db.SortGDPDesc)

// ValidateName trims a country name and rejects empty input.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if country.Normalize(name) == "" {
		return "", errors.NewInvalidRequest("name must not be empty")
	}
	return name, nil
}

// ParseSort maps a sort parameter onto a store ordering.
// Empty means the default (name ascending).
func ParseSort(sort string) (db.Sort, error) {
	switch sort {
	case "":
		return db.SortName, nil
	case SortGDPDesc:
		return db.SortGDPDesc, nil
	default:
		return "", errors.NewInvalidSort(sort, SortGDPDesc)
	}
}
