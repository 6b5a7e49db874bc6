package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mmynk/groupsplit/internal/resilience"
)

// RateFetcher returns quotes as units of each currency per one USD, the
// convention used by public exchange-rate APIs.
type RateFetcher interface {
	FetchRates(ctx context.Context) (map[Code]float64, error)
}

// RefreshRecorder observes refresh outcomes ("ok", "error", "open").
type RefreshRecorder interface {
	RecordRateRefresh(outcome string)
}

// ratesResponse is the provider payload: {"base":"USD","rates":{"EUR":0.92}}.
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// HTTPFetcher pulls quotes from a JSON endpoint.
type HTTPFetcher struct {
	client *http.Client
	url    string
}

// NewHTTPFetcher creates a fetcher for url with the given request timeout.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// FetchRates implements RateFetcher.
func (f *HTTPFetcher) FetchRates(ctx context.Context) (map[Code]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates provider returned %s", resp.Status)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	if payload.Base != "" && payload.Base != string(USD) {
		return nil, fmt.Errorf("%w: provider base %q, want USD", ErrInvalidRate, payload.Base)
	}

	quotes := make(map[Code]float64, len(payload.Rates))
	for code, quote := range payload.Rates {
		quotes[Code(code)] = quote
	}
	return quotes, nil
}

// Refresher periodically replaces the Source's snapshot with freshly
// fetched rates. Failed refreshes leave the previous snapshot in place.
type Refresher struct {
	source   *Source
	fetcher  RateFetcher
	interval time.Duration
	retry    resilience.RetryConfig
	breaker  *gobreaker.CircuitBreaker
	recorder RefreshRecorder
	now      func() time.Time
}

// NewRefresher wires a refresher. recorder may be nil.
func NewRefresher(source *Source, fetcher RateFetcher, interval time.Duration, retry resilience.RetryConfig, recorder RefreshRecorder) *Refresher {
	return &Refresher{
		source:   source,
		fetcher:  fetcher,
		interval: interval,
		retry:    retry,
		breaker:  resilience.NewCircuitBreaker("currency-rates"),
		recorder: recorder,
		now:      time.Now,
	}
}

// Refresh fetches quotes once and publishes a new snapshot. Quotes for
// codes outside the current table are ignored, and USD stays pinned at 1.
func (r *Refresher) Refresh(ctx context.Context) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		var quotes map[Code]float64
		err := resilience.RetryWithBackoff(ctx, r.retry, func(ctx context.Context) error {
			q, err := r.fetcher.FetchRates(ctx)
			if err != nil {
				return err
			}
			quotes = q
			return nil
		})
		if err != nil {
			return nil, err
		}

		current := r.source.Current()
		rates := make(map[Code]float64, len(quotes))
		for code, quote := range quotes {
			if code == USD || !current.IsKnown(code) {
				continue
			}
			if err := checkRate(code, quote); err != nil {
				return nil, err
			}
			rates[code] = 1 / quote
		}

		next, err := current.WithRates(rates, r.now())
		if err != nil {
			return nil, err
		}
		r.source.Store(next)
		return nil, nil
	})

	r.record(err)
	return err
}

func (r *Refresher) record(err error) {
	if r.recorder == nil {
		return
	}
	switch {
	case err == nil:
		r.recorder.RecordRateRefresh("ok")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		r.recorder.RecordRateRefresh("open")
	default:
		r.recorder.RecordRateRefresh("error")
	}
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	slog.Info("Rate refresher started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("Rate refresh failed, keeping previous snapshot", "error", err)
		} else {
			slog.Debug("Rates refreshed", "updated_at", r.source.Current().UpdatedAt())
		}

		select {
		case <-ctx.Done():
			slog.Info("Rate refresher stopped")
			return nil
		case <-ticker.C:
		}
	}
}
