package weather

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a client-side request budget so a
// shared API key stays inside the provider's free tier.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider allows rps requests per second with bursts of burst.
// A non-positive rps disables limiting.
func NewRateLimitedProvider(provider Provider, rps float64, burst int) *RateLimitedProvider {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

func (r *RateLimitedProvider) Name() string {
	return fmt.Sprintf("%s [Rate Limited]", r.provider.Name())
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return newError(KindUpstreamUnavailable, err, "rate limit wait canceled")
	}
	return nil
}

func (r *RateLimitedProvider) Geocode(ctx context.Context, query string) ([]Candidate, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Geocode(ctx, query)
}

func (r *RateLimitedProvider) ReverseGeocode(ctx context.Context, lat, lon float64) ([]Candidate, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.ReverseGeocode(ctx, lat, lon)
}

func (r *RateLimitedProvider) Forecast(ctx context.Context, lat, lon float64) ([]RawForecastSample, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Forecast(ctx, lat, lon)
}

var _ Provider = (*RateLimitedProvider)(nil)
