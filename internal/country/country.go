package country

import "time"

// WireTimeLayout is the UTC, second-precision format used in API output.
const WireTimeLayout = "2006-01-02T15:04:05Z"

// Record is a cached country joined with its exchange rate.
// Nullable columns are pointers so absence survives the JSON round trip.
type Record struct {
	ID int64 `json:"id"`

	// Name is the display name from the first insert; identity is NameNorm.
	Name string `json:"name"`

	Capital *string `json:"capital"`
	Region  *string `json:"region"`

	Population int64 `json:"population"`

	// CurrencyCode is the first currency listed by the source (3 uppercase letters).
	CurrencyCode *string `json:"currency_code"`

	// ExchangeRate is units of local currency per USD; set only when > 0.
	ExchangeRate *float64 `json:"exchange_rate"`

	// EstimatedGDP is present exactly when ExchangeRate is.
	EstimatedGDP *float64 `json:"estimated_gdp"`

	FlagURL *string `json:"flag_url"`

	LastRefreshedAt time.Time `json:"last_refreshed_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NameNorm returns the identity key for the record.
func (r *Record) NameNorm() string {
	return Normalize(r.Name)
}

// Status is the singleton refresh summary.
// LastRefreshedAt is nil before the first refresh and otherwise formatted
// as 2006-01-02T15:04:05Z (or the stored text if it cannot be parsed).
type Status struct {
	TotalCountries  int     `json:"total_countries"`
	LastRefreshedAt *string `json:"last_refreshed_at"`
}

// Raw is one undecoded element of the countries payload.
type Raw []byte
