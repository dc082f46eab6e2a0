package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/michaelpento.lv/stablearb/types"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
)

// Ledger is an in-memory dual-chain, dual-asset paper trading book.
// All mutations go through ApplyTrade and are serialized.
type Ledger struct {
	mu       sync.RWMutex
	balances map[types.Chain]*types.Balance
	trades   []types.Trade
	now      func() time.Time
}

// New seeds a ledger with the initial allocation per chain
func New(seed map[types.Chain]types.Balance) (*Ledger, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: ledger needs at least one chain", types.ErrConfiguration)
	}

	l := &Ledger{
		balances: make(map[types.Chain]*types.Balance, len(seed)),
		trades:   make([]types.Trade, 0),
		now:      time.Now,
	}
	ts := l.now().UnixMilli()
	for chain, b := range seed {
		if !umath.IsFiniteNonNegative(b.Base) || !umath.IsFiniteNonNegative(b.Quote) {
			return nil, fmt.Errorf("%w: seed balance on %s must be finite and non-negative", types.ErrConfiguration, chain)
		}
		l.balances[chain] = &types.Balance{Base: b.Base, Quote: b.Quote, TimestampMs: ts}
	}
	return l, nil
}

// ApplyTrade debits the starting asset on the buy chain and credits the round
// trip proceeds in the target asset on the sell chain. The balance check runs
// under the same lock as the mutation, so either everything is applied and a
// Trade is appended or nothing changes. A rejected plan returns a failed Trade
// that is not recorded in history.
func (l *Ledger) ApplyTrade(plan types.ExecutionPlan) (*types.Trade, error) {
	trade := types.Trade{
		ID:            uuid.NewString(),
		SourceChain:   plan.BuyChain,
		TargetChain:   plan.SellChain,
		StartingAsset: plan.StartingAsset,
		TargetAsset:   plan.TargetAsset,
		BuyPrice:      plan.BuyPrice,
		SellPrice:     plan.SellPrice,
		Amount:        plan.Amount,
		GasCostUSD:    plan.GasCostUSD,
		Status:        types.TradeFailed,
	}

	if !umath.IsFinitePositive(plan.Amount) || !umath.IsFinitePositive(plan.BuyPrice) || !umath.IsFinitePositive(plan.SellPrice) {
		return &trade, fmt.Errorf("%w: invalid plan amount=%v buy=%v sell=%v",
			types.ErrLedgerCommitRejected, plan.Amount, plan.BuyPrice, plan.SellPrice)
	}

	received := plan.Amount * plan.SellPrice / plan.BuyPrice
	trade.GrossProfit = received - plan.Amount
	trade.NetProfitUSD = trade.GrossProfit - plan.GasCostUSD

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UnixMilli()
	trade.TimestampMs = ts

	source, ok := l.balances[plan.BuyChain]
	if !ok {
		return &trade, fmt.Errorf("%w: unknown chain %s", types.ErrLedgerCommitRejected, plan.BuyChain)
	}
	target, ok := l.balances[plan.SellChain]
	if !ok {
		return &trade, fmt.Errorf("%w: unknown chain %s", types.ErrLedgerCommitRejected, plan.SellChain)
	}
	if have := source.Of(plan.StartingAsset); have < plan.Amount {
		return &trade, fmt.Errorf("%w: insufficient balance at commit time: %s %s has %.6f, need %.6f",
			types.ErrLedgerCommitRejected, plan.BuyChain, plan.StartingAsset, have, plan.Amount)
	}

	adjust(source, plan.StartingAsset, -plan.Amount)
	adjust(target, plan.TargetAsset, received)
	source.TimestampMs = ts
	target.TimestampMs = ts

	trade.Status = types.TradeExecuted
	l.trades = append(l.trades, trade)
	return &trade, nil
}

func adjust(b *types.Balance, asset types.Asset, delta float64) {
	if asset == types.Base {
		b.Base += delta
	} else {
		b.Quote += delta
	}
}

// Balance returns a copy of one chain's balance
func (l *Ledger) Balance(chain types.Chain) (types.Balance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.balances[chain]
	if !ok {
		return types.Balance{}, false
	}
	return *b, true
}

// Snapshot returns a copy of every chain's balance
func (l *Ledger) Snapshot() map[types.Chain]types.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[types.Chain]types.Balance, len(l.balances))
	for chain, b := range l.balances {
		out[chain] = *b
	}
	return out
}

// Chains returns the tracked chains in name order
func (l *Ledger) Chains() []types.Chain {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.sortedChains()
}

func (l *Ledger) sortedChains() []types.Chain {
	chains := make([]types.Chain, 0, len(l.balances))
	for chain := range l.balances {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}

// Trades returns a copy of the trade history
func (l *Ledger) Trades() []types.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]types.Trade, len(l.trades))
	copy(result, l.trades)
	return result
}

// Stats derives portfolio statistics from history and current balances.
// Balances are valued at 1 USD per unit.
func (l *Ledger) Stats() types.PortfolioStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var stats types.PortfolioStats
	for _, t := range l.trades {
		stats.TotalTrades++
		if t.NetProfitUSD > 0 {
			stats.ProfitableTrades++
		}
		stats.TotalProfitUSD += t.NetProfitUSD
	}

	// sum in a fixed order so repeated calls are bit-identical
	for _, chain := range l.sortedChains() {
		stats.TotalPortfolioValueUSD += l.balances[chain].Total()
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.ProfitableTrades) / float64(stats.TotalTrades)
	}
	return stats
}
