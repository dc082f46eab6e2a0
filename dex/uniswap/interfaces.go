package uniswap

import (
	"context"
	"math/big"
)

// IUniswapV2Pair is the subset of the V2 pair contract the reader needs
type IUniswapV2Pair interface {
	GetReserves(ctx context.Context) (reserve0 *big.Int, reserve1 *big.Int, err error)
	Tokens(ctx context.Context) (token0 *Token, token1 *Token, err error)
}

// IUniswapV3Pool is the subset of the V3 pool contract the reader needs
type IUniswapV3Pool interface {
	SqrtPriceX96(ctx context.Context) (*big.Int, error)
	Tokens(ctx context.Context) (token0 *Token, token1 *Token, err error)
}
