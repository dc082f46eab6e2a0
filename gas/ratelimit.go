package gas

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/time/rate"
)

// RateLimitedGasSource paces SuggestGasPrice calls
type RateLimitedGasSource struct {
	source  GasPriceSource
	limiter *rate.Limiter
}

func NewRateLimitedGasSource(source GasPriceSource, rps float64, burst int) *RateLimitedGasSource {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedGasSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (s *RateLimitedGasSource) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	return s.source.SuggestGasPrice(ctx)
}
