package types

import "time"

// CycleReport is everything one arbitrage cycle observed and did
type CycleReport struct {
	Cycle       uint64
	StartedAtMs int64
	Duration    time.Duration

	Prices      map[Chain]PricePair
	GasCostUSD  map[Chain]float64
	TotalGasUSD float64

	Target   Asset
	Decision *Decision
	Trade    *Trade

	Balances map[Chain]Balance
	Stats    PortfolioStats

	Err       error
	NextDelay time.Duration
}

// Executed reports whether the cycle applied a trade
func (r CycleReport) Executed() bool {
	return r.Trade != nil && r.Trade.Status == TradeExecuted
}
