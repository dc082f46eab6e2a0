package types

// TradeStatus marks the outcome of a paper trade
type TradeStatus string

const (
	TradeExecuted TradeStatus = "executed"
	TradeFailed   TradeStatus = "failed"
)

// Trade is an immutable record of a simulated cross-chain round trip
type Trade struct {
	ID            string
	SourceChain   Chain
	TargetChain   Chain
	StartingAsset Asset
	TargetAsset   Asset
	BuyPrice      float64
	SellPrice     float64
	Amount        float64
	GrossProfit   float64
	GasCostUSD    float64
	NetProfitUSD  float64
	TimestampMs   int64
	Status        TradeStatus
}

// ExecutionPlan is what the evaluator hands to the ledger
type ExecutionPlan struct {
	BuyChain      Chain
	SellChain     Chain
	StartingAsset Asset
	TargetAsset   Asset
	Amount        float64
	BuyPrice      float64
	SellPrice     float64
	GasCostUSD    float64
}

// Decision reasons
const (
	ReasonNoSpread            = "no spread"
	ReasonRatioNotAboveOne    = "ratio <= 1"
	ReasonInsufficientBalance = "insufficient balance"
	ReasonBelowThreshold      = "below threshold after final check"
	ReasonInvalidPrice        = "invalid price"
)

// Decision is the evaluator's verdict. When Execute is false, Reason says why.
type Decision struct {
	Execute bool
	Reason  string

	BuyChain      Chain
	SellChain     Chain
	StartingAsset Asset
	TargetAsset   Asset

	BuyPrice  float64
	SellPrice float64
	Ratio     float64

	MinAmount            float64
	MaxAmount            float64
	Amount               float64
	ExpectedGrossProfit  float64
	ExpectedNetProfitUSD float64
	GasCostUSD           float64
}

// NoOpportunity builds a non-executing decision
func NoOpportunity(reason string) Decision {
	return Decision{Reason: reason}
}

// Plan converts an executing decision into a ledger plan
func (d Decision) Plan() ExecutionPlan {
	return ExecutionPlan{
		BuyChain:      d.BuyChain,
		SellChain:     d.SellChain,
		StartingAsset: d.StartingAsset,
		TargetAsset:   d.TargetAsset,
		Amount:        d.Amount,
		BuyPrice:      d.BuyPrice,
		SellPrice:     d.SellPrice,
		GasCostUSD:    d.GasCostUSD,
	}
}

// PortfolioStats summarizes trade history and current holdings
type PortfolioStats struct {
	TotalTrades            int
	ProfitableTrades       int
	TotalProfitUSD         float64
	TotalPortfolioValueUSD float64
	WinRate                float64
}
