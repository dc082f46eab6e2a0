package dex

import (
	"context"
)

// PoolPrice is a raw pool reading: RawPrice is token1 units per one token0 unit,
// already adjusted for both tokens' decimals.
type PoolPrice struct {
	RawPrice       float64
	Token0Symbol   string
	Token1Symbol   string
	Token0Decimals uint8
	Token1Decimals uint8
}

// PoolReader reads the current price of a single on-chain pool
type PoolReader interface {
	// GetName returns a short label for logs, e.g. "uniswap-v2"
	GetName() string

	// GetPoolPrice fetches the latest pool price
	GetPoolPrice(ctx context.Context) (*PoolPrice, error)
}
