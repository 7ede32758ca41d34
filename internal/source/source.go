// Package source fetches raw country and exchange-rate data from the upstream APIs.
package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/errors"
)

// Upstream names used in error messages and logs.
const (
	CountriesSource = "countries API"
	RatesSource     = "exchange rates API"
)

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 32 << 20

// Config holds the upstream endpoints and timeouts.
type Config struct {
	CountriesURL     string
	ExchangeRatesURL string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
}

// Client talks to both upstreams. It never retries and has no side effects.
type Client struct {
	http         *http.Client
	countriesURL string
	ratesURL     string
	logger       *zap.Logger
}

// NewHTTPClient creates an HTTP client whose dial is bounded by connect and
// whose whole request, body included, is bounded by overall.
func NewHTTPClient(connect, overall time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: overall,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   overall,
	}
}

// New creates a Client. A nil httpClient gets one built from cfg timeouts.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.ConnectTimeout, cfg.RequestTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:         httpClient,
		countriesURL: cfg.CountriesURL,
		ratesURL:     cfg.ExchangeRatesURL,
		logger:       logger,
	}
}

// FetchCountries returns every element of the countries payload as a raw
// JSON document. Fails with SOURCE_UNAVAILABLE unless the body is a
// non-empty JSON array.
func (c *Client) FetchCountries(ctx context.Context) ([]country.Raw, error) {
	body, err := c.get(ctx, c.countriesURL, CountriesSource)
	if err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, errors.NewSourceUnavailable(CountriesSource, fmt.Errorf("payload is not a JSON array"))
	}

	elements := doc.Array()
	if len(elements) == 0 {
		return nil, errors.NewSourceUnavailable(CountriesSource, fmt.Errorf("payload is empty"))
	}

	raws := make([]country.Raw, 0, len(elements))
	for _, el := range elements {
		raws = append(raws, country.Raw(el.Raw))
	}

	c.logger.Debug("fetched countries", zap.Int("count", len(raws)))
	return raws, nil
}

// FetchExchangeRates returns the USD-based rates table keyed by currency
// code. Entries whose value is not a number are skipped. Fails with
// SOURCE_UNAVAILABLE when the payload has no non-empty "rates" object.
func (c *Client) FetchExchangeRates(ctx context.Context) (map[string]float64, error) {
	body, err := c.get(ctx, c.ratesURL, RatesSource)
	if err != nil {
		return nil, err
	}

	table := gjson.GetBytes(body, "rates")
	if !table.IsObject() {
		return nil, errors.NewSourceUnavailable(RatesSource, fmt.Errorf("payload has no rates object"))
	}

	rates := make(map[string]float64)
	skipped := 0
	table.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			skipped++
			return true
		}
		if code, ok := country.NormalizeCurrency(key.String()); ok {
			rates[code] = value.Float()
		} else {
			skipped++
		}
		return true
	})
	if len(rates) == 0 {
		return nil, errors.NewSourceUnavailable(RatesSource, fmt.Errorf("rates object is empty"))
	}

	c.logger.Debug("fetched exchange rates", zap.Int("count", len(rates)), zap.Int("skipped", skipped))
	return rates, nil
}

// get performs one GET and returns the body when the status is 200 and the
// body is valid JSON.
func (c *Client) get(ctx context.Context, url, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewSourceUnavailable(source, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed", zap.String("source", source), zap.Error(err))
		return nil, errors.NewSourceUnavailable(source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("upstream returned non-200",
			zap.String("source", source),
			zap.Int("status", resp.StatusCode))
		return nil, errors.NewSourceUnavailable(source, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.NewSourceUnavailable(source, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.NewSourceUnavailable(source, fmt.Errorf("invalid JSON payload"))
	}

	c.logger.Debug("upstream request completed",
		zap.String("source", source),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}
