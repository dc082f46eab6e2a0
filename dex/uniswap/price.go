package uniswap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/stablearb/dex"
	"github.com/michaelpento.lv/stablearb/types"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
)

// q192 is 2^192, the square of the Q64.96 fixed point scale
var q192 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 192))

// ReservesToPrice returns token1 per token0 from V2 reserves, adjusted for decimals
func ReservesToPrice(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) (float64, error) {
	if reserve0 == nil || reserve1 == nil || reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return 0, fmt.Errorf("%w: empty reserves", types.ErrPriceUnavailable)
	}

	amount0 := umath.ScaleDown(reserve0, decimals0)
	amount1 := umath.ScaleDown(reserve1, decimals1)
	price := amount1 / amount0
	if !umath.IsFinitePositive(price) {
		return 0, fmt.Errorf("%w: reserves produce price %v", types.ErrPriceUnavailable, price)
	}
	return price, nil
}

// SqrtPriceX96ToPrice returns token1 per token0 from a V3 sqrtPriceX96, adjusted for decimals
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (float64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0, fmt.Errorf("%w: zero sqrtPriceX96", types.ErrPriceUnavailable)
	}

	sq := new(big.Float).SetInt(new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96))
	raw := new(big.Float).Quo(sq, q192)

	// raw is in smallest units; shift by 10^(d0-d1)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals0)), nil))
	unscale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals1)), nil))
	raw.Mul(raw, scale)
	raw.Quo(raw, unscale)

	price, _ := raw.Float64()
	if !umath.IsFinitePositive(price) {
		return 0, fmt.Errorf("%w: sqrtPriceX96 produces price %v", types.ErrPriceUnavailable, price)
	}
	return price, nil
}

// V2Reader adapts a V2 pair to dex.PoolReader
type V2Reader struct {
	pair IUniswapV2Pair
}

func NewV2Reader(pair IUniswapV2Pair) *V2Reader {
	return &V2Reader{pair: pair}
}

func (r *V2Reader) GetName() string {
	return "uniswap-v2"
}

func (r *V2Reader) GetPoolPrice(ctx context.Context) (*dex.PoolPrice, error) {
	t0, t1, err := r.pair.Tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPriceUnavailable, err)
	}
	reserve0, reserve1, err := r.pair.GetReserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPriceUnavailable, err)
	}

	price, err := ReservesToPrice(reserve0, reserve1, t0.Decimals, t1.Decimals)
	if err != nil {
		return nil, err
	}
	return poolPrice(price, t0, t1), nil
}

// V3Reader adapts a V3 pool to dex.PoolReader
type V3Reader struct {
	pool IUniswapV3Pool
}

func NewV3Reader(pool IUniswapV3Pool) *V3Reader {
	return &V3Reader{pool: pool}
}

func (r *V3Reader) GetName() string {
	return "uniswap-v3"
}

func (r *V3Reader) GetPoolPrice(ctx context.Context) (*dex.PoolPrice, error) {
	t0, t1, err := r.pool.Tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPriceUnavailable, err)
	}
	sqrtPrice, err := r.pool.SqrtPriceX96(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPriceUnavailable, err)
	}

	price, err := SqrtPriceX96ToPrice(sqrtPrice, t0.Decimals, t1.Decimals)
	if err != nil {
		return nil, err
	}
	return poolPrice(price, t0, t1), nil
}

func poolPrice(price float64, t0, t1 *Token) *dex.PoolPrice {
	return &dex.PoolPrice{
		RawPrice:       price,
		Token0Symbol:   t0.Symbol,
		Token1Symbol:   t1.Symbol,
		Token0Decimals: t0.Decimals,
		Token1Decimals: t1.Decimals,
	}
}
