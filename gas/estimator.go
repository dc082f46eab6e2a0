package gas

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/michaelpento.lv/stablearb/types"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
	"go.uber.org/zap"
)

// OperationKind names an on-chain action with a fixed gas budget
type OperationKind string

const (
	OpSwap   OperationKind = "swap"
	OpBridge OperationKind = "bridge"
)

// DefaultNativePriceTTL is how long a native/USD lookup is reused
const DefaultNativePriceTTL = 30 * time.Second

// GasPriceSource returns the chain's current gas price in wei.
// *ethclient.Client satisfies it.
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// NativePriceSource returns the USD price of the chain's native token
type NativePriceSource interface {
	LatestUSDPrice(ctx context.Context) (float64, error)
}

// ChainGasConfig wires the sources and constants for a single chain
type ChainGasConfig struct {
	GasPrices         GasPriceSource
	NativePrice       NativePriceSource // optional, FallbackNativeUSD is used when nil
	FallbackNativeUSD float64
	GasUnits          map[OperationKind]uint64
}

type chainState struct {
	cfg  ChainGasConfig
	last *types.GasEstimate
}

type cachedPrice struct {
	usd       float64
	fetchedAt time.Time
}

// Estimator turns gas prices and per-operation gas units into USD costs
type Estimator struct {
	chains     map[types.Chain]*chainState
	priceCache *lru.Cache
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
	mu         sync.Mutex
}

// NewEstimator creates a new gas estimator
func NewEstimator(chains map[types.Chain]ChainGasConfig, ttl time.Duration, logger *zap.Logger) (*Estimator, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("%w: no chains configured for gas estimation", types.ErrConfiguration)
	}
	if ttl <= 0 {
		ttl = DefaultNativePriceTTL
	}

	cache, err := lru.New(len(chains))
	if err != nil {
		return nil, fmt.Errorf("failed to create price cache: %w", err)
	}

	states := make(map[types.Chain]*chainState, len(chains))
	for chain, cfg := range chains {
		if cfg.GasPrices == nil {
			return nil, fmt.Errorf("%w: no gas price source for %s", types.ErrConfiguration, chain)
		}
		if cfg.NativePrice == nil && cfg.FallbackNativeUSD <= 0 {
			return nil, fmt.Errorf("%w: no native token price source for %s", types.ErrConfiguration, chain)
		}
		states[chain] = &chainState{cfg: cfg}
	}

	return &Estimator{
		chains:     states,
		priceCache: cache,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// GasUnits sums the configured units for the given operations
func (e *Estimator) GasUnits(chain types.Chain, ops ...OperationKind) uint64 {
	state, ok := e.chains[chain]
	if !ok {
		return 0
	}
	var units uint64
	for _, op := range ops {
		units += state.cfg.GasUnits[op]
	}
	return units
}

// Estimate fetches the gas price and prices the given operations.
// If the fetch fails the previous estimate's gas price is reused; without one
// ErrGasEstimateUnavailable is returned.
func (e *Estimator) Estimate(ctx context.Context, chain types.Chain, ops ...OperationKind) (types.GasEstimate, error) {
	state, ok := e.chains[chain]
	if !ok {
		return types.GasEstimate{}, fmt.Errorf("%w: unknown chain %s", types.ErrGasEstimateUnavailable, chain)
	}
	units := e.GasUnits(chain, ops...)

	gasPrice, err := state.cfg.GasPrices.SuggestGasPrice(ctx)
	if err == nil && (gasPrice == nil || gasPrice.Sign() < 0) {
		err = fmt.Errorf("invalid gas price %v", gasPrice)
	} else if err == nil && !gasPrice.IsUint64() {
		err = fmt.Errorf("gas price %v overflows uint64", gasPrice)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		if state.last == nil {
			return types.GasEstimate{}, fmt.Errorf("%w: %s: %v", types.ErrGasEstimateUnavailable, chain, err)
		}
		e.logger.Warn("Gas price fetch failed, reusing previous estimate",
			zap.String("chain", chain.String()),
			zap.Uint64("gas_price_wei", state.last.GasPriceWei),
			zap.Error(err))
		stale := *state.last
		stale.GasUnits = units
		stale.TotalCostWei = umath.MulUint64(stale.GasPriceWei, units)
		return stale, nil
	}

	priceWei := gasPrice.Uint64()
	estimate := types.GasEstimate{
		GasPriceWei:  priceWei,
		GasUnits:     units,
		TotalCostWei: umath.MulUint64(priceWei, units),
		TimestampMs:  e.now().UnixMilli(),
	}
	state.last = &estimate
	return estimate, nil
}

// NativeTokenUSDPrice returns the cached native/USD price, refreshing it after
// the TTL. Lookup failures fall back to the configured static price.
func (e *Estimator) NativeTokenUSDPrice(ctx context.Context, chain types.Chain) float64 {
	state, ok := e.chains[chain]
	if !ok {
		return 0
	}

	if v, ok := e.priceCache.Get(chain); ok {
		cached := v.(cachedPrice)
		if e.now().Sub(cached.fetchedAt) < e.ttl {
			return cached.usd
		}
	}

	if state.cfg.NativePrice == nil {
		return state.cfg.FallbackNativeUSD
	}

	usd, err := state.cfg.NativePrice.LatestUSDPrice(ctx)
	if err == nil && !umath.IsFinitePositive(usd) {
		err = fmt.Errorf("invalid native price %v", usd)
	}
	if err != nil {
		e.logger.Warn("Native token price lookup failed, using fallback",
			zap.String("chain", chain.String()),
			zap.Float64("fallback_usd", state.cfg.FallbackNativeUSD),
			zap.Error(err))
		return state.cfg.FallbackNativeUSD
	}

	e.priceCache.Add(chain, cachedPrice{usd: usd, fetchedAt: e.now()})
	return usd
}

// CostInUSD prices the given operations on chain in USD
func (e *Estimator) CostInUSD(ctx context.Context, chain types.Chain, ops ...OperationKind) (float64, types.GasEstimate, error) {
	estimate, err := e.Estimate(ctx, chain, ops...)
	if err != nil {
		return 0, types.GasEstimate{}, err
	}

	native := e.NativeTokenUSDPrice(ctx, chain)
	costWei := new(big.Int).SetUint64(estimate.TotalCostWei)
	return umath.WeiToNative(costWei) * native, estimate, nil
}

// EstimateArbitrageGas estimates gas for a swap route with numHops pools
func EstimateArbitrageGas(numHops int) uint64 {
	// Base cost for transaction
	baseCost := uint64(21000)

	// Cost per DEX hop (approximate)
	// This includes:
	// - Storage reads (~2000)
	// - Token transfers (~50000)
	// - Swap execution (~100000)
	costPerHop := uint64(152000)

	return baseCost + (costPerHop * uint64(numHops))
}
