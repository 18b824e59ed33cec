package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Provider fetches a fresh quote for a market from an upstream quote service.
// Calls are rate limited and wrapped in a circuit breaker so a degraded
// upstream cannot stall position evaluation: callers treat any error as "no
// fresh quote available" and carry on with the odds they already hold.
type Provider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Config holds provider tuning knobs.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// quoteResponse is the upstream payload: {"market": "...", "odds": 2.05}.
type quoteResponse struct {
	Market string  `json:"market"`
	Odds   float64 `json:"odds"`
}

// NewProvider creates a quote provider. Breaker trips after 5 consecutive
// failures and probes again after 30 seconds.
func NewProvider(cfg Config) *Provider {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "quotes",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("quote breaker state change")
		},
	})

	return &Provider{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: breaker,
	}
}

// CurrentOdds fetches the latest quote for a market. Returns an error when
// the upstream is unreachable, rate limiting times out, or the breaker is
// open; the caller decides whether stale odds are acceptable.
func (p *Provider) CurrentOdds(ctx context.Context, market string) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("quote rate limit: %w", err)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, market)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

// BreakerState exposes the breaker state for metrics.
func (p *Provider) BreakerState() gobreaker.State {
	return p.breaker.State()
}

func (p *Provider) fetch(ctx context.Context, market string) (float64, error) {
	u := fmt.Sprintf("%s?market=%s", p.baseURL, url.QueryEscape(market))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote service returned %d", resp.StatusCode)
	}

	var q quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return 0, fmt.Errorf("failed to decode quote: %w", err)
	}
	if q.Odds <= 0 {
		return 0, fmt.Errorf("quote service returned non-positive odds %v", q.Odds)
	}
	return q.Odds, nil
}
