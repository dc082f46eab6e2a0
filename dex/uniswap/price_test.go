package uniswap

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/michaelpento.lv/stablearb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPair struct {
	reserve0, reserve1 *big.Int
	token0, token1     *Token
	err                error
}

func (m *mockPair) GetReserves(ctx context.Context) (*big.Int, *big.Int, error) {
	return m.reserve0, m.reserve1, m.err
}

func (m *mockPair) Tokens(ctx context.Context) (*Token, *Token, error) {
	return m.token0, m.token1, nil
}

type mockPool struct {
	sqrtPrice      *big.Int
	token0, token1 *Token
}

func (m *mockPool) SqrtPriceX96(ctx context.Context) (*big.Int, error) {
	return m.sqrtPrice, nil
}

func (m *mockPool) Tokens(ctx context.Context) (*Token, *Token, error) {
	return m.token0, m.token1, nil
}

var (
	usdc = &Token{Symbol: "USDC", Decimals: 6}
	usdt = &Token{Symbol: "USDT", Decimals: 6}
	dai  = &Token{Symbol: "DAI", Decimals: 18}
)

func TestReservesToPrice(t *testing.T) {
	// 1,000,000 USDC vs 1,000,200 USDT
	price, err := ReservesToPrice(big.NewInt(1_000_000_000_000), big.NewInt(1_000_200_000_000), 6, 6)
	require.NoError(t, err)
	assert.InDelta(t, 1.0002, price, 1e-12)

	// mixed decimals: 1000 USDC vs 1000 DAI
	daiReserve, _ := new(big.Int).SetString("1000000000000000000000", 10)
	price, err = ReservesToPrice(big.NewInt(1_000_000_000), daiReserve, 6, 18)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, price, 1e-12)

	_, err = ReservesToPrice(big.NewInt(0), big.NewInt(10), 6, 6)
	assert.True(t, errors.Is(err, types.ErrPriceUnavailable))
}

func TestSqrtPriceX96ToPrice(t *testing.T) {
	// sqrtPriceX96 = 2^96 means a raw price of exactly 1
	one := new(big.Int).Lsh(big.NewInt(1), 96)
	price, err := SqrtPriceX96ToPrice(one, 6, 6)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, price, 1e-12)

	// doubling sqrt price quadruples price
	price, err = SqrtPriceX96ToPrice(new(big.Int).Lsh(big.NewInt(1), 97), 6, 6)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, price, 1e-12)

	_, err = SqrtPriceX96ToPrice(big.NewInt(0), 6, 6)
	assert.True(t, errors.Is(err, types.ErrPriceUnavailable))
}

func TestV2Reader(t *testing.T) {
	reader := NewV2Reader(&mockPair{
		reserve0: big.NewInt(500_000_000_000),
		reserve1: big.NewInt(499_900_000_000),
		token0:   usdt,
		token1:   usdc,
	})
	assert.Equal(t, "uniswap-v2", reader.GetName())

	p, err := reader.GetPoolPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.9998, p.RawPrice, 1e-12)
	assert.Equal(t, "USDT", p.Token0Symbol)
	assert.Equal(t, "USDC", p.Token1Symbol)
	assert.Equal(t, uint8(6), p.Token0Decimals)

	failing := NewV2Reader(&mockPair{token0: usdc, token1: usdt, err: errors.New("rpc down")})
	_, err = failing.GetPoolPrice(context.Background())
	assert.True(t, errors.Is(err, types.ErrPriceUnavailable))
}

func TestV3Reader(t *testing.T) {
	reader := NewV3Reader(&mockPool{
		sqrtPrice: new(big.Int).Lsh(big.NewInt(1), 96),
		token0:    usdc,
		token1:    dai,
	})
	p, err := reader.GetPoolPrice(context.Background())
	require.NoError(t, err)
	// raw 1 smallest-unit ratio, shifted by 10^(6-18)
	assert.InDelta(t, 1e-12, p.RawPrice, 1e-24)
	assert.Equal(t, "uniswap-v3", reader.GetName())
}
