package arbitrage

import (
	"fmt"
	"math"

	"github.com/michaelpento.lv/stablearb/types"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
	"go.uber.org/zap"
)

// Params bounds trade sizing
type Params struct {
	ProfitThresholdUSD   float64
	MaxTradeFraction     float64
	AbsoluteMinTradeSize float64
	AtomicUnit           float64
}

// DefaultParams returns the standard sizing rules
func DefaultParams() Params {
	return Params{
		ProfitThresholdUSD:   0.5,
		MaxTradeFraction:     0.5,
		AbsoluteMinTradeSize: 100,
		AtomicUnit:           1e-6,
	}
}

// Validate rejects sizing rules that would make every decision meaningless
func (p Params) Validate() error {
	switch {
	case !umath.IsFiniteNonNegative(p.ProfitThresholdUSD):
		return fmt.Errorf("%w: profit threshold %v", types.ErrConfiguration, p.ProfitThresholdUSD)
	case !umath.IsFinitePositive(p.MaxTradeFraction) || p.MaxTradeFraction > 1:
		return fmt.Errorf("%w: max trade fraction %v not in (0, 1]", types.ErrConfiguration, p.MaxTradeFraction)
	case !umath.IsFiniteNonNegative(p.AbsoluteMinTradeSize):
		return fmt.Errorf("%w: absolute min trade size %v", types.ErrConfiguration, p.AbsoluteMinTradeSize)
	case !umath.IsFinitePositive(p.AtomicUnit):
		return fmt.Errorf("%w: atomic unit %v", types.ErrConfiguration, p.AtomicUnit)
	}
	return nil
}

// BalanceReader exposes a single chain's balance
type BalanceReader interface {
	Balance(chain types.Chain) (types.Balance, bool)
}

// Evaluator sizes cross-chain round trips between two pools
type Evaluator struct {
	params Params
	logger *zap.Logger
}

// NewEvaluator creates a new opportunity evaluator
func NewEvaluator(params Params, logger *zap.Logger) (*Evaluator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{
		params: params,
		logger: logger,
	}, nil
}

// Params returns the evaluator's sizing rules
func (e *Evaluator) Params() Params {
	return e.params
}

// Evaluate decides whether a round trip that accumulates target is worth
// doing and, if so, at what size. Both directions use the same algorithm:
// each chain's price is projected to "counter units per target unit", the
// cheaper chain is the buy side, and the smallest amount clearing
// gas + threshold is traded, capped by a fraction of the buy-side balance.
func (e *Evaluator) Evaluate(a, b types.ChainQuote, target types.Asset, totalGasUSD float64, balances BalanceReader) types.Decision {
	start := target.Other()

	if !a.Prices.Valid() || !b.Prices.Valid() {
		return e.reject(types.NoOpportunity(types.ReasonInvalidPrice))
	}

	costA := a.Prices.CostOf(target)
	costB := b.Prices.CostOf(target)
	if costA == costB {
		d := types.NoOpportunity(types.ReasonNoSpread)
		d.TargetAsset, d.StartingAsset = target, start
		d.BuyPrice, d.SellPrice, d.Ratio = costA, costB, 1
		return e.reject(d)
	}

	buy, sell := a, b
	buyPrice, sellPrice := costA, costB
	if costB < costA {
		buy, sell = b, a
		buyPrice, sellPrice = costB, costA
	}

	d := types.Decision{
		BuyChain:      buy.Chain,
		SellChain:     sell.Chain,
		StartingAsset: start,
		TargetAsset:   target,
		BuyPrice:      buyPrice,
		SellPrice:     sellPrice,
		Ratio:         sellPrice / buyPrice,
		GasCostUSD:    totalGasUSD,
	}

	if !(d.Ratio > 1) {
		d.Reason = types.ReasonRatioNotAboveOne
		return e.reject(d)
	}

	d.MinAmount = MinTradeAmount(d.Ratio, totalGasUSD, e.params.ProfitThresholdUSD, e.params.AtomicUnit)

	balance, ok := balances.Balance(buy.Chain)
	if ok {
		d.MaxAmount = math.Floor(balance.Of(start) * e.params.MaxTradeFraction)
	}
	required := math.Max(d.MinAmount, e.params.AbsoluteMinTradeSize)
	if !ok || d.MaxAmount < required {
		d.Reason = types.ReasonInsufficientBalance
		return e.reject(d)
	}

	d.Amount = math.Min(d.MaxAmount, required)
	d.ExpectedGrossProfit = d.Amount * (sellPrice/buyPrice - 1)
	d.ExpectedNetProfitUSD = d.ExpectedGrossProfit - totalGasUSD

	if !(d.ExpectedNetProfitUSD > e.params.ProfitThresholdUSD) {
		d.Reason = types.ReasonBelowThreshold
		return e.reject(d)
	}

	d.Execute = true
	e.logger.Debug("Opportunity found",
		zap.String("buy_chain", d.BuyChain.String()),
		zap.String("sell_chain", d.SellChain.String()),
		zap.String("target", target.String()),
		zap.Float64("ratio", d.Ratio),
		zap.Float64("min_amount", d.MinAmount),
		zap.Float64("amount", d.Amount),
		zap.Float64("net_profit_usd", d.ExpectedNetProfitUSD))
	return d
}

func (e *Evaluator) reject(d types.Decision) types.Decision {
	e.logger.Debug("No opportunity",
		zap.String("reason", d.Reason),
		zap.Float64("ratio", d.Ratio),
		zap.Float64("min_amount", d.MinAmount),
		zap.Float64("max_amount", d.MaxAmount),
		zap.Float64("gas_cost_usd", d.GasCostUSD))
	return d
}

// MinTradeAmount is the break-even size for a round trip at ratio: the
// smallest amount, rounded up to unit, whose gross profit covers
// gasUSD + threshold + one atomic unit. Returns +Inf when ratio <= 1.
func MinTradeAmount(ratio, gasUSD, threshold, unit float64) float64 {
	if !(ratio > 1) {
		return math.Inf(1)
	}
	required := gasUSD + threshold + unit
	return umath.CeilToUnit(required/(ratio-1), unit)
}
