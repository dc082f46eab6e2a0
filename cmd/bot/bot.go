package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/michaelpento.lv/stablearb/config"
	"github.com/michaelpento.lv/stablearb/dex"
	"github.com/michaelpento.lv/stablearb/dex/uniswap"
	"github.com/michaelpento.lv/stablearb/engine"
	"github.com/michaelpento.lv/stablearb/gas"
	"github.com/michaelpento.lv/stablearb/ledger"
	"github.com/michaelpento.lv/stablearb/price"
	"github.com/michaelpento.lv/stablearb/strategies/arbitrage"
	"github.com/michaelpento.lv/stablearb/types"
	"github.com/michaelpento.lv/stablearb/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Bot assembles the paper arbitrage engine from configuration
type Bot struct {
	cfg      *config.Config
	cycle    *engine.Cycle
	clients  []*ethclient.Client
	registry *prometheus.Registry
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// New dials every chain and wires the engine. No RPC round trip happens
// here for HTTP endpoints, so an unreachable node shows up on the first cycle.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		cfg:      cfg,
		registry: metrics.NewRegistry(),
		logger:   logger,
	}

	sources := make([]engine.ChainSource, 0, len(cfg.Chains))
	gasChains := make(map[types.Chain]gas.ChainGasConfig, len(cfg.Chains))

	for _, ch := range cfg.Chains {
		chain := types.Chain(ch.Name)

		client, err := ethclient.DialContext(ctx, ch.RPCEndpoint)
		if err != nil {
			b.closeClients()
			return nil, fmt.Errorf("failed to connect to %s: %w", chain, err)
		}
		b.clients = append(b.clients, client)

		reader, err := newPoolReader(ch, client)
		if err != nil {
			b.closeClients()
			return nil, err
		}
		sources = append(sources, engine.ChainSource{
			Chain:      chain,
			Pool:       dex.NewRateLimitedReader(reader, cfg.RPCRateLimit.RequestsPerSecond, cfg.RPCRateLimit.BurstSize),
			Normalizer: price.NewNormalizer(ch.Symbols(cfg.BaseSymbol, cfg.QuoteSymbol)),
		})

		gasCfg := gas.ChainGasConfig{
			GasPrices:         gas.NewRateLimitedGasSource(client, cfg.RPCRateLimit.RequestsPerSecond, cfg.RPCRateLimit.BurstSize),
			FallbackNativeUSD: ch.FallbackNativeUSD,
			GasUnits:          GasUnits(ch.GasUnits),
		}
		if ch.NativeUSDFeed != "" {
			feed, err := gas.NewChainlinkFeed(common.HexToAddress(ch.NativeUSDFeed), client)
			if err != nil {
				b.closeClients()
				return nil, err
			}
			gasCfg.NativePrice = feed
		}
		gasChains[chain] = gasCfg

		logger.Info("Configured chain",
			zap.String("chain", ch.Name),
			zap.String("pool", ch.PoolAddress),
			zap.String("pool_kind", ch.PoolKind),
			zap.String("native", ch.NativeSymbol),
			zap.Bool("native_feed", ch.NativeUSDFeed != ""))
	}

	estimator, err := gas.NewEstimator(gasChains, cfg.NativePriceTTL(), logger)
	if err != nil {
		b.closeClients()
		return nil, err
	}

	book, err := ledger.New(cfg.SeedBalances())
	if err != nil {
		b.closeClients()
		return nil, err
	}

	evaluator, err := arbitrage.NewEvaluator(arbitrage.Params{
		ProfitThresholdUSD:   cfg.ProfitThresholdUSD,
		MaxTradeFraction:     cfg.MaxTradeFractionOfBalance,
		AbsoluteMinTradeSize: cfg.AbsoluteMinTradeSize,
		AtomicUnit:           cfg.AtomicUnit,
	}, logger)
	if err != nil {
		b.closeClients()
		return nil, err
	}

	cycleCfg := engine.DefaultConfig()
	cycleCfg.PollInterval = cfg.PollInterval()
	cycleCfg.RetryDelay = cfg.RetryDelay()

	b.cycle, err = engine.NewCycle(engine.Components{
		Chains:    sources,
		Gas:       estimator,
		Evaluator: evaluator,
		Ledger:    book,
		Metrics:   metrics.NewEngineMetrics("stablearb", b.registry),
	}, cycleCfg, logger)
	if err != nil {
		b.closeClients()
		return nil, err
	}

	return b, nil
}

func newPoolReader(ch config.ChainConfig, client *ethclient.Client) (dex.PoolReader, error) {
	address := common.HexToAddress(ch.PoolAddress)
	switch ch.PoolKind {
	case config.PoolKindV2:
		return uniswap.NewV2Reader(uniswap.NewUniswapV2Pair(address, client)), nil
	case config.PoolKindV3:
		return uniswap.NewV3Reader(uniswap.NewUniswapV3Pool(address, client)), nil
	default:
		return nil, fmt.Errorf("%w: unknown pool kind %q for %s", types.ErrConfiguration, ch.PoolKind, ch.Name)
	}
}

// GasUnits converts configured units to operation kinds. A missing swap
// entry defaults to a single-hop swap budget.
func GasUnits(configured map[string]uint64) map[gas.OperationKind]uint64 {
	units := make(map[gas.OperationKind]uint64, len(configured)+1)
	for op, n := range configured {
		units[gas.OperationKind(op)] = n
	}
	if _, ok := units[gas.OpSwap]; !ok {
		units[gas.OpSwap] = gas.EstimateArbitrageGas(1)
	}
	return units
}

// Cycle exposes the engine for single runs and inspection
func (b *Bot) Cycle() *engine.Cycle {
	return b.cycle
}

// Start runs the arbitrage loop, and the metrics endpoint when configured,
// until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting stablecoin arbitrage engine...")

	if b.cfg.MetricsAddr != "" {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := metrics.Serve(ctx, b.cfg.MetricsAddr, b.registry, b.logger); err != nil {
				b.logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.cycle.Run(ctx); err != nil {
			b.logger.Error("Arbitrage loop error", zap.Error(err))
		}
	}()

	return nil
}

// Stop waits for the loop to finish and closes RPC connections
func (b *Bot) Stop() {
	b.logger.Info("Stopping stablecoin arbitrage engine...")
	b.wg.Wait()
	b.closeClients()

	stats := b.cycle.Stats()
	b.logger.Info("Final portfolio",
		zap.Int("total_trades", stats.TotalTrades),
		zap.Int("profitable_trades", stats.ProfitableTrades),
		zap.Float64("total_profit_usd", stats.TotalProfitUSD),
		zap.Float64("portfolio_value_usd", stats.TotalPortfolioValueUSD),
		zap.Float64("win_rate", stats.WinRate))
}

func (b *Bot) closeClients() {
	for _, c := range b.clients {
		c.Close()
	}
	b.clients = nil
}
