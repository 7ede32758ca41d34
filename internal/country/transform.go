package country

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// GDP multiplier bounds (inclusive).
const (
	MinMultiplier = 1000
	MaxMultiplier = 2000
)

// ErrMalformed marks a source record that cannot become a Record.
// The refresh counts these and moves on.
var ErrMalformed = errors.New("malformed country record")

// Transformer turns raw source records into Records.
// It is safe for concurrent use.
type Transformer struct {
	mu         sync.Mutex
	multiplier func() int
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithMultiplier replaces the random GDP multiplier source.
func WithMultiplier(fn func() int) Option {
	return func(t *Transformer) { t.multiplier = fn }
}

// WithSeed makes the multiplier sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(t *Transformer) { t.multiplier = uniformMultiplier(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))) }
}

// NewTransformer creates a Transformer drawing multipliers uniformly from
// [MinMultiplier, MaxMultiplier] unless an option overrides it.
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{
		multiplier: uniformMultiplier(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func uniformMultiplier(r *rand.Rand) func() int {
	return func() int {
		return MinMultiplier + r.IntN(MaxMultiplier-MinMultiplier+1)
	}
}

// Transform maps one raw country and the USD rate table onto a Record.
// Timestamps and ID are left for the store to fill.
func (t *Transformer) Transform(raw Raw, rates map[string]float64) (*Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	name := doc.Get("name")
	if name.Type != gjson.String || strings.TrimSpace(name.String()) == "" {
		return nil, fmt.Errorf("%w: missing name", ErrMalformed)
	}

	population, err := populationOf(doc.Get("population"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name.String(), err)
	}

	rec := &Record{
		Name:         strings.TrimSpace(name.String()),
		Capital:      capitalOf(doc.Get("capital")),
		Region:       optionalString(doc.Get("region")),
		Population:   population,
		CurrencyCode: currencyOf(doc.Get("currencies")),
		FlagURL:      optionalString(doc.Get("flag")),
	}
	if rec.FlagURL == nil {
		rec.FlagURL = optionalString(doc.Get("flags.png"))
	}

	if rec.CurrencyCode == nil {
		return rec, nil
	}
	rate, ok := rates[*rec.CurrencyCode]
	if !ok || rate <= 0 {
		return rec, nil
	}

	gdp := float64(rec.Population) * float64(t.nextMultiplier()) / rate
	rec.ExchangeRate = &rate
	rec.EstimatedGDP = &gdp
	return rec, nil
}

func (t *Transformer) nextMultiplier() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.multiplier()
}

func optionalString(v gjson.Result) *string {
	if v.Type != gjson.String {
		return nil
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return nil
	}
	return &s
}

// capitalOf accepts both the string form and the array form used by newer
// payload versions (first element wins).
func capitalOf(v gjson.Result) *string {
	if v.IsArray() {
		for _, el := range v.Array() {
			if s := optionalString(el); s != nil {
				return s
			}
		}
		return nil
	}
	return optionalString(v)
}

func populationOf(v gjson.Result) (int64, error) {
	var n float64
	switch v.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		n = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("population %q is not numeric", v.Str)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("population has type %s", v.Type)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which no int64 holds
	if n < 0 || n >= math.MaxInt64 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("population %v out of range", n)
	}
	return int64(n), nil
}

// currencyOf returns the first currency in source order. The array form
// carries {"code": ...} objects; the object form is keyed by code.
func currencyOf(v gjson.Result) *string {
	var code string
	switch {
	case v.IsArray():
		arr := v.Array()
		if len(arr) == 0 {
			return nil
		}
		code = arr[0].Get("code").String()
	case v.IsObject():
		v.ForEach(func(key, _ gjson.Result) bool {
			code = key.String()
			return false
		})
	default:
		return nil
	}

	normalized, ok := NormalizeCurrency(code)
	if !ok {
		return nil
	}
	return &normalized
}
