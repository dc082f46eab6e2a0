package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/michaelpento.lv/stablearb/dex"
	"github.com/michaelpento.lv/stablearb/gas"
	"github.com/michaelpento.lv/stablearb/ledger"
	"github.com/michaelpento.lv/stablearb/price"
	"github.com/michaelpento.lv/stablearb/strategies/arbitrage"
	"github.com/michaelpento.lv/stablearb/types"
	"github.com/michaelpento.lv/stablearb/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GasCoster prices a set of operations on a chain in USD.
// *gas.Estimator satisfies it.
type GasCoster interface {
	CostInUSD(ctx context.Context, chain types.Chain, ops ...gas.OperationKind) (float64, types.GasEstimate, error)
}

// ChainSource is one side of the arbitrage pair
type ChainSource struct {
	Chain types.Chain
	Pool  dex.PoolReader
	// Normalizer overrides Components.Normalizer for pools whose tokens
	// carry chain-specific symbols such as bridged "USDC.e"
	Normalizer *price.Normalizer
}

// Components are the collaborators a Cycle drives
type Components struct {
	Chains     []ChainSource
	Normalizer *price.Normalizer // default for chains without their own
	Gas        GasCoster
	Evaluator  *arbitrage.Evaluator
	Ledger     *ledger.Ledger
	Metrics    *metrics.EngineMetrics // optional
}

// Config controls loop timing and the operations priced per chain
type Config struct {
	PollInterval time.Duration
	RetryDelay   time.Duration
	GasOps       []gas.OperationKind
}

// DefaultConfig returns the standard loop timing
func DefaultConfig() Config {
	return Config{
		PollInterval: 15 * time.Second,
		RetryDelay:   5 * time.Second,
		GasOps:       []gas.OperationKind{gas.OpSwap, gas.OpBridge},
	}
}

// Cycle owns the engine state and runs one arbitrage iteration at a time
type Cycle struct {
	chains    [2]ChainSource
	gas       GasCoster
	evaluator *arbitrage.Evaluator
	ledger    *ledger.Ledger
	metrics   *metrics.EngineMetrics
	cfg       Config
	logger    *zap.Logger

	state  atomic.Int32
	cycles atomic.Uint64
	runMu  sync.Mutex
	now    func() time.Time
}

// NewCycle validates the components and creates a cycle in the idle state
func NewCycle(c Components, cfg Config, logger *zap.Logger) (*Cycle, error) {
	if len(c.Chains) != 2 {
		return nil, fmt.Errorf("%w: exactly 2 chains required, got %d", types.ErrConfiguration, len(c.Chains))
	}
	if c.Chains[0].Chain == c.Chains[1].Chain {
		return nil, fmt.Errorf("%w: duplicate chain %s", types.ErrConfiguration, c.Chains[0].Chain)
	}
	if c.Gas == nil || c.Evaluator == nil || c.Ledger == nil {
		return nil, fmt.Errorf("%w: missing cycle component", types.ErrConfiguration)
	}
	var chains [2]ChainSource
	for i, src := range c.Chains {
		if src.Pool == nil {
			return nil, fmt.Errorf("%w: no pool reader for %s", types.ErrConfiguration, src.Chain)
		}
		if src.Normalizer == nil {
			src.Normalizer = c.Normalizer
		}
		if src.Normalizer == nil {
			return nil, fmt.Errorf("%w: no price normalizer for %s", types.ErrConfiguration, src.Chain)
		}
		chains[i] = src
		if _, ok := c.Ledger.Balance(src.Chain); !ok {
			return nil, fmt.Errorf("%w: ledger has no balance for %s", types.ErrConfiguration, src.Chain)
		}
	}
	if cfg.PollInterval <= 0 || cfg.RetryDelay <= 0 {
		return nil, fmt.Errorf("%w: poll interval and retry delay must be positive", types.ErrConfiguration)
	}

	m := c.Metrics
	if m == nil {
		m = metrics.NewEngineMetrics("stablearb", prometheus.NewRegistry())
	}

	return &Cycle{
		chains:    chains,
		gas:       c.Gas,
		evaluator: c.Evaluator,
		ledger:    c.Ledger,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// State returns the cycle's current state
func (c *Cycle) State() State {
	return State(c.state.Load())
}

func (c *Cycle) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		c.logger.Debug("State transition",
			zap.Stringer("from", prev),
			zap.Stringer("to", s))
	}
}

// Snapshot returns current balances per chain
func (c *Cycle) Snapshot() map[types.Chain]types.Balance {
	return c.ledger.Snapshot()
}

// Stats returns portfolio statistics
func (c *Cycle) Stats() types.PortfolioStats {
	return c.ledger.Stats()
}

// Run repeats RunCycle until ctx is cancelled, sleeping the poll interval
// after a clean cycle and the retry delay after a failed one.
func (c *Cycle) Run(ctx context.Context) error {
	c.logger.Info("Starting arbitrage loop",
		zap.String("chain_a", c.chains[0].Chain.String()),
		zap.String("chain_b", c.chains[1].Chain.String()),
		zap.Duration("poll_interval", c.cfg.PollInterval),
		zap.Duration("retry_delay", c.cfg.RetryDelay))
	defer c.setState(StateIdle)

	for {
		if ctx.Err() != nil {
			c.logger.Info("Arbitrage loop stopped")
			return nil
		}

		report := c.RunCycle(ctx)

		c.setState(StateSleeping)
		timer := time.NewTimer(report.NextDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("Arbitrage loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle performs one fetch, select, evaluate, apply and report pass.
// Errors are recorded in the report and never returned; the report's
// NextDelay tells the caller how long to wait before the next cycle.
func (c *Cycle) RunCycle(ctx context.Context) (report types.CycleReport) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	start := c.now()
	report = types.CycleReport{
		Cycle:       c.cycles.Add(1),
		StartedAtMs: start.UnixMilli(),
		NextDelay:   c.cfg.PollInterval,
	}
	logger := c.logger.With(zap.Uint64("cycle", report.Cycle))

	defer func() {
		report.Duration = c.now().Sub(start)
		c.metrics.CycleDuration.Observe(report.Duration.Seconds())
	}()

	c.setState(StateFetchingPrices)
	quotes, err := c.fetchPrices(ctx, logger)
	report.Prices = make(map[types.Chain]types.PricePair, len(c.chains))
	for _, q := range quotes {
		if q != nil {
			report.Prices[q.Chain] = q.Prices
		}
	}
	if err != nil {
		logger.Error("Price fetch failed, skipping evaluation", zap.Error(err))
		return c.finish(logger, &report, metrics.ResultError, err)
	}

	report.GasCostUSD = c.fetchGasCosts(ctx, logger)
	for _, cost := range report.GasCostUSD {
		report.TotalGasUSD += cost
	}

	c.setState(StateSelectingTarget)
	report.Target = arbitrage.SelectTarget(c.ledger)
	logger.Info("Selected target",
		zap.Stringer("target", report.Target),
		zap.Float64("total_gas_usd", report.TotalGasUSD))

	c.setState(StateEvaluating)
	decision := c.evaluator.Evaluate(*quotes[0], *quotes[1], report.Target, report.TotalGasUSD, c.ledger)
	report.Decision = &decision

	if !decision.Execute {
		c.metrics.Decisions.WithLabelValues(decision.Reason).Inc()
		logger.Info("No opportunity",
			zap.String("reason", decision.Reason),
			zap.Float64("ratio", decision.Ratio),
			zap.Float64("min_amount", decision.MinAmount),
			zap.Float64("max_amount", decision.MaxAmount))
		return c.finish(logger, &report, metrics.ResultNoOpportunity, nil)
	}
	c.metrics.Decisions.WithLabelValues("execute").Inc()
	logger.Info("Opportunity found",
		zap.String("buy_chain", decision.BuyChain.String()),
		zap.String("sell_chain", decision.SellChain.String()),
		zap.Stringer("starting_asset", decision.StartingAsset),
		zap.Float64("amount", decision.Amount),
		zap.Float64("expected_net_profit_usd", decision.ExpectedNetProfitUSD))

	// nothing evaluated after a shutdown request is applied
	if err := ctx.Err(); err != nil {
		logger.Warn("Shutdown requested, discarding trade", zap.Error(err))
		return c.finish(logger, &report, metrics.ResultError, err)
	}

	c.setState(StateApplying)
	trade, err := c.ledger.ApplyTrade(decision.Plan())
	if err != nil {
		c.metrics.Rejections.Inc()
		logger.Warn("Trade rejected",
			zap.String("chain", decision.BuyChain.String()),
			zap.String("operation", "apply_trade"),
			zap.Error(err))
		return c.finish(logger, &report, metrics.ResultRejected, err)
	}
	report.Trade = trade

	c.metrics.Trades.Inc()
	if trade.NetProfitUSD > 0 {
		c.metrics.ProfitUSD.Add(trade.NetProfitUSD)
	}
	logger.Info("Trade executed",
		zap.String("trade_id", trade.ID),
		zap.String("source_chain", trade.SourceChain.String()),
		zap.String("target_chain", trade.TargetChain.String()),
		zap.Float64("amount", trade.Amount),
		zap.Float64("gross_profit", trade.GrossProfit),
		zap.Float64("gas_cost_usd", trade.GasCostUSD),
		zap.Float64("net_profit_usd", trade.NetProfitUSD))

	return c.finish(logger, &report, metrics.ResultExecuted, nil)
}

// fetchPrices reads both pools concurrently. Every chain that succeeds is
// logged and returned even when the other fails.
func (c *Cycle) fetchPrices(ctx context.Context, logger *zap.Logger) ([2]*types.ChainQuote, error) {
	var quotes [2]*types.ChainQuote

	// no derived context: one chain failing must not cancel the other
	var g errgroup.Group
	for i, src := range c.chains {
		g.Go(func() error {
			pair, err := c.fetchPrice(ctx, src)
			if err != nil {
				c.metrics.FetchErrors.WithLabelValues(src.Chain.String(), "price").Inc()
				logger.Error("Failed to fetch price",
					zap.String("chain", src.Chain.String()),
					zap.String("operation", "fetch_price"),
					zap.String("pool", src.Pool.GetName()),
					zap.Error(err))
				return err
			}

			c.metrics.Price.WithLabelValues(src.Chain.String()).Set(pair.BaseToQuote)
			logger.Info("Fetched price",
				zap.String("chain", src.Chain.String()),
				zap.Float64("base_to_quote", pair.BaseToQuote),
				zap.Float64("quote_to_base", pair.QuoteToBase))
			quotes[i] = &types.ChainQuote{Chain: src.Chain, Prices: pair}
			return nil
		})
	}

	return quotes, g.Wait()
}

func (c *Cycle) fetchPrice(ctx context.Context, src ChainSource) (types.PricePair, error) {
	raw, err := src.Pool.GetPoolPrice(ctx)
	if err != nil {
		if errors.Is(err, types.ErrPriceUnavailable) {
			return types.PricePair{}, fmt.Errorf("%s: %w", src.Chain, err)
		}
		return types.PricePair{}, fmt.Errorf("%w: %s: %v", types.ErrPriceUnavailable, src.Chain, err)
	}

	pair, err := src.Normalizer.Normalize(raw)
	if err != nil {
		return types.PricePair{}, fmt.Errorf("%s: %w", src.Chain, err)
	}
	return pair, nil
}

// fetchGasCosts prices a round trip on both chains concurrently. A chain
// without any usable estimate is left out of the result and adds nothing
// to the total.
func (c *Cycle) fetchGasCosts(ctx context.Context, logger *zap.Logger) map[types.Chain]float64 {
	var costs [2]*float64

	var g errgroup.Group
	for i, src := range c.chains {
		g.Go(func() error {
			cost, estimate, err := c.gas.CostInUSD(ctx, src.Chain, c.cfg.GasOps...)
			if err != nil {
				c.metrics.FetchErrors.WithLabelValues(src.Chain.String(), "gas").Inc()
				logger.Warn("Gas estimate unavailable, skipping gas-aware checks for chain",
					zap.String("chain", src.Chain.String()),
					zap.String("operation", "estimate_gas"),
					zap.Error(err))
				return nil
			}

			c.metrics.GasCostUSD.WithLabelValues(src.Chain.String()).Set(cost)
			logger.Info("Estimated gas cost",
				zap.String("chain", src.Chain.String()),
				zap.Uint64("gas_price_wei", estimate.GasPriceWei),
				zap.Uint64("gas_units", estimate.GasUnits),
				zap.Float64("cost_usd", cost))
			costs[i] = &cost
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[types.Chain]float64, len(c.chains))
	for i, src := range c.chains {
		if costs[i] != nil {
			out[src.Chain] = *costs[i]
		}
	}
	return out
}

// finish runs the reporting step shared by every cycle outcome
func (c *Cycle) finish(logger *zap.Logger, report *types.CycleReport, result string, err error) types.CycleReport {
	c.setState(StateReporting)

	report.Err = err
	if err != nil {
		report.NextDelay = c.cfg.RetryDelay
	}
	report.Balances = c.ledger.Snapshot()
	report.Stats = c.ledger.Stats()

	c.metrics.Cycles.WithLabelValues(result).Inc()
	c.metrics.PortfolioValue.Set(report.Stats.TotalPortfolioValueUSD)
	c.metrics.WinRate.Set(report.Stats.WinRate)

	for _, chain := range c.ledger.Chains() {
		b := report.Balances[chain]
		c.metrics.Balances.WithLabelValues(chain.String(), types.Base.String()).Set(b.Base)
		c.metrics.Balances.WithLabelValues(chain.String(), types.Quote.String()).Set(b.Quote)
		logger.Info("Balance",
			zap.String("chain", chain.String()),
			zap.Float64("base", b.Base),
			zap.Float64("quote", b.Quote))
	}

	logger.Info("Cycle complete",
		zap.String("result", result),
		zap.Int("total_trades", report.Stats.TotalTrades),
		zap.Int("profitable_trades", report.Stats.ProfitableTrades),
		zap.Float64("total_profit_usd", report.Stats.TotalProfitUSD),
		zap.Float64("portfolio_value_usd", report.Stats.TotalPortfolioValueUSD),
		zap.Float64("win_rate", report.Stats.WinRate),
		zap.Duration("next_delay", report.NextDelay))

	return *report
}
