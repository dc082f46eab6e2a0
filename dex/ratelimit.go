package dex

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedReader paces calls to an underlying PoolReader
type RateLimitedReader struct {
	reader  PoolReader
	limiter *rate.Limiter
}

// NewRateLimitedReader wraps reader with a token bucket of rps requests per second
func NewRateLimitedReader(reader PoolReader, rps float64, burst int) *RateLimitedReader {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedReader{
		reader:  reader,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedReader) GetName() string {
	return r.reader.GetName()
}

func (r *RateLimitedReader) GetPoolPrice(ctx context.Context) (*PoolPrice, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	return r.reader.GetPoolPrice(ctx)
}
