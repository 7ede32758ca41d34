package country

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixed(m int) Option {
	return WithMultiplier(func() int { return m })
}

func TestTransform_ComputesGDP(t *testing.T) {
	tr := NewTransformer(fixed(1500))
	raw := Raw(`{"name":"Nigeria","capital":"Abuja","region":"Africa","population":1000,"flag":"https://flagcdn.com/ng.svg","currencies":[{"code":"NGN","name":"Nigerian naira"}]}`)

	rec, err := tr.Transform(raw, map[string]float64{"NGN": 1500})
	require.NoError(t, err)

	require.Equal(t, "Nigeria", rec.Name)
	require.Equal(t, "Abuja", *rec.Capital)
	require.Equal(t, "Africa", *rec.Region)
	require.Equal(t, int64(1000), rec.Population)
	require.Equal(t, "NGN", *rec.CurrencyCode)
	require.Equal(t, "https://flagcdn.com/ng.svg", *rec.FlagURL)
	require.NotNil(t, rec.ExchangeRate)
	require.Equal(t, 1500.0, *rec.ExchangeRate)
	require.NotNil(t, rec.EstimatedGDP)
	require.InDelta(t, 1000.0, *rec.EstimatedGDP, 1e-9)
}

func TestTransform_NoMatchingRate(t *testing.T) {
	tr := NewTransformer(fixed(1500))

	tests := []struct {
		name  string
		raw   string
		rates map[string]float64
	}{
		{"unknown code", `{"name":"Atlantis","population":10,"currencies":[{"code":"ATL"}]}`, map[string]float64{"USD": 1}},
		{"zero rate", `{"name":"Zeroland","population":10,"currencies":[{"code":"ZER"}]}`, map[string]float64{"ZER": 0}},
		{"negative rate", `{"name":"Negland","population":10,"currencies":[{"code":"NEG"}]}`, map[string]float64{"NEG": -2}},
		{"no currencies", `{"name":"Antarctica","population":1000}`, map[string]float64{"USD": 1}},
		{"empty currencies", `{"name":"Nowhere","population":5,"currencies":[]}`, map[string]float64{"USD": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tr.Transform(Raw(tt.raw), tt.rates)
			require.NoError(t, err)
			require.Nil(t, rec.ExchangeRate)
			require.Nil(t, rec.EstimatedGDP)
		})
	}
}

func TestTransform_FirstCurrencyWins(t *testing.T) {
	tr := NewTransformer(fixed(1000))
	raw := Raw(`{"name":"Zimbabwe","population":100,"currencies":[{"code":"usd"},{"code":"ZWL"}]}`)

	rec, err := tr.Transform(raw, map[string]float64{"USD": 1, "ZWL": 322})
	require.NoError(t, err)
	require.Equal(t, "USD", *rec.CurrencyCode)
	require.InDelta(t, 100000.0, *rec.EstimatedGDP, 1e-9)
}

func TestTransform_ObjectCurrencies(t *testing.T) {
	tr := NewTransformer(fixed(2000))
	raw := Raw(`{"name":"Japan","capital":["Tokyo"],"population":10,"flags":{"png":"https://flagcdn.com/w320/jp.png"},"currencies":{"JPY":{"name":"Japanese yen"}}}`)

	rec, err := tr.Transform(raw, map[string]float64{"JPY": 100})
	require.NoError(t, err)
	require.Equal(t, "JPY", *rec.CurrencyCode)
	require.Equal(t, "Tokyo", *rec.Capital)
	require.Equal(t, "https://flagcdn.com/w320/jp.png", *rec.FlagURL)
	require.InDelta(t, 200.0, *rec.EstimatedGDP, 1e-9)
}

func TestTransform_Defaults(t *testing.T) {
	tr := NewTransformer(fixed(1000))

	rec, err := tr.Transform(Raw(`{"name":"  Bouvet Island ","capital":"","population":null}`), nil)
	require.NoError(t, err)
	require.Equal(t, "Bouvet Island", rec.Name)
	require.Nil(t, rec.Capital)
	require.Nil(t, rec.Region)
	require.Nil(t, rec.FlagURL)
	require.Nil(t, rec.CurrencyCode)
	require.Equal(t, int64(0), rec.Population)
}

func TestTransform_PopulationCoerced(t *testing.T) {
	tr := NewTransformer(fixed(1000))

	rec, err := tr.Transform(Raw(`{"name":"Stringland","population":"42"}`), nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), rec.Population)

	rec, err = tr.Transform(Raw(`{"name":"Fraction","population":12.9}`), nil)
	require.NoError(t, err)
	require.Equal(t, int64(12), rec.Population)

	rec, err = tr.Transform(Raw(`{"name":"Crowded","population":8e18}`), nil)
	require.NoError(t, err)
	require.Equal(t, int64(8_000_000_000_000_000_000), rec.Population)
}

func TestTransform_Malformed(t *testing.T) {
	tr := NewTransformer(fixed(1000))

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"name":`},
		{"array", `["Japan"]`},
		{"string", `"Japan"`},
		{"missing name", `{"population":1}`},
		{"empty name", `{"name":"   "}`},
		{"numeric name", `{"name":42}`},
		{"negative population", `{"name":"Minus","population":-5}`},
		{"non-numeric population", `{"name":"Words","population":"many"}`},
		{"object population", `{"name":"Obj","population":{"n":1}}`},
		{"population above int64", `{"name":"Huge","population":1e19}`},
		{"population at 2^63", `{"name":"Edge","population":9223372036854775808}`},
		{"string population above int64", `{"name":"Huge","population":"9.3e18"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tr.Transform(Raw(tt.raw), nil)
			require.Nil(t, rec)
			require.True(t, errors.Is(err, ErrMalformed), "err = %v", err)
		})
	}
}

func TestTransform_MultiplierRange(t *testing.T) {
	tr := NewTransformer(WithSeed(42))
	raw := Raw(`{"name":"Unit","population":1,"currencies":[{"code":"USD"}]}`)
	rates := map[string]float64{"USD": 1}

	for i := 0; i < 500; i++ {
		rec, err := tr.Transform(raw, rates)
		require.NoError(t, err)
		gdp := *rec.EstimatedGDP
		if gdp < MinMultiplier || gdp > MaxMultiplier {
			t.Fatalf("gdp = %v, want within [%d, %d]", gdp, MinMultiplier, MaxMultiplier)
		}
	}
}

func TestTransform_SeedIsReproducible(t *testing.T) {
	raw := Raw(`{"name":"Unit","population":1,"currencies":[{"code":"USD"}]}`)
	rates := map[string]float64{"USD": 1}

	a := NewTransformer(WithSeed(7))
	b := NewTransformer(WithSeed(7))
	for i := 0; i < 20; i++ {
		ra, err := a.Transform(raw, rates)
		require.NoError(t, err)
		rb, err := b.Transform(raw, rates)
		require.NoError(t, err)
		require.Equal(t, *ra.EstimatedGDP, *rb.EstimatedGDP)
	}
}

func TestTransform_MultiplierPerCountry(t *testing.T) {
	calls := 0
	tr := NewTransformer(WithMultiplier(func() int {
		calls++
		return 1000 + calls
	}))
	rates := map[string]float64{"USD": 1}

	a, err := tr.Transform(Raw(`{"name":"A","population":1,"currencies":[{"code":"USD"}]}`), rates)
	require.NoError(t, err)
	b, err := tr.Transform(Raw(`{"name":"B","population":1,"currencies":[{"code":"USD"}]}`), rates)
	require.NoError(t, err)

	require.Equal(t, 2, calls)
	require.NotEqual(t, *a.EstimatedGDP, *b.EstimatedGDP)
}
