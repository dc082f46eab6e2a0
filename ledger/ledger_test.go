package ledger

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/michaelpento.lv/stablearb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chainA = types.Chain("avalanche")
	chainB = types.Chain("sonic")
)

func newSeeded(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(map[types.Chain]types.Balance{
		chainA: {Base: 50000, Quote: 50000},
		chainB: {Base: 50000, Quote: 50000},
	})
	require.NoError(t, err)
	return l
}

func totalUnits(snap map[types.Chain]types.Balance) float64 {
	var sum float64
	for _, b := range snap {
		sum += b.Base + b.Quote
	}
	return sum
}

func TestApplyTrade(t *testing.T) {
	l := newSeeded(t)

	trade, err := l.ApplyTrade(types.ExecutionPlan{
		BuyChain:      chainB,
		SellChain:     chainA,
		StartingAsset: types.Quote,
		TargetAsset:   types.Base,
		Amount:        1500,
		BuyPrice:      0.9998,
		SellPrice:     1.0002,
		GasCostUSD:    0.1,
	})
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, types.TradeExecuted, trade.Status)
	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, chainB, trade.SourceChain)
	assert.Equal(t, chainA, trade.TargetChain)
	assert.InDelta(t, 1500*(1.0002/0.9998-1), trade.GrossProfit, 1e-9)
	assert.InDelta(t, trade.GrossProfit-0.1, trade.NetProfitUSD, 1e-12)

	b, ok := l.Balance(chainB)
	require.True(t, ok)
	assert.InDelta(t, 48500, b.Quote, 1e-9)
	assert.InDelta(t, 50000, b.Base, 1e-9)

	a, _ := l.Balance(chainA)
	assert.InDelta(t, 50000+1500+trade.GrossProfit, a.Base, 1e-9)
	assert.InDelta(t, 50000, a.Quote, 1e-9)

	assert.Len(t, l.Trades(), 1)
}

func TestApplyTradeRejectsInsufficientBalance(t *testing.T) {
	l := newSeeded(t)
	before := l.Snapshot()

	trade, err := l.ApplyTrade(types.ExecutionPlan{
		BuyChain:      chainA,
		SellChain:     chainB,
		StartingAsset: types.Base,
		TargetAsset:   types.Quote,
		Amount:        50000.5,
		BuyPrice:      1,
		SellPrice:     1.001,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrLedgerCommitRejected))
	assert.Contains(t, err.Error(), "insufficient balance at commit time")
	require.NotNil(t, trade)
	assert.Equal(t, types.TradeFailed, trade.Status)

	assert.Equal(t, before, l.Snapshot())
	assert.Empty(t, l.Trades())
}

func TestApplyTradeRejectsInvalidPlan(t *testing.T) {
	l := newSeeded(t)

	_, err := l.ApplyTrade(types.ExecutionPlan{BuyChain: chainA, SellChain: chainB, Amount: 0, BuyPrice: 1, SellPrice: 1})
	assert.True(t, errors.Is(err, types.ErrLedgerCommitRejected))

	_, err = l.ApplyTrade(types.ExecutionPlan{BuyChain: "unknown", SellChain: chainB, Amount: 10, BuyPrice: 1, SellPrice: 1.1})
	assert.True(t, errors.Is(err, types.ErrLedgerCommitRejected))
	assert.Empty(t, l.Trades())
}

func TestLedgerConservation(t *testing.T) {
	l := newSeeded(t)

	plans := []types.ExecutionPlan{
		{BuyChain: chainB, SellChain: chainA, StartingAsset: types.Quote, TargetAsset: types.Base, Amount: 1500, BuyPrice: 0.9998, SellPrice: 1.0002},
		{BuyChain: chainA, SellChain: chainB, StartingAsset: types.Base, TargetAsset: types.Quote, Amount: 900, BuyPrice: 0.999, SellPrice: 1.003},
		{BuyChain: chainA, SellChain: chainB, StartingAsset: types.Quote, TargetAsset: types.Base, Amount: 120.25, BuyPrice: 1.01, SellPrice: 1.0101, GasCostUSD: 5},
	}

	for _, plan := range plans {
		before := totalUnits(l.Snapshot())
		trade, err := l.ApplyTrade(plan)
		require.NoError(t, err)
		after := totalUnits(l.Snapshot())
		assert.InDelta(t, before+trade.GrossProfit, after, 1e-7)
	}

	for _, b := range l.Snapshot() {
		assert.GreaterOrEqual(t, b.Base, 0.0)
		assert.GreaterOrEqual(t, b.Quote, 0.0)
	}
}

func TestStats(t *testing.T) {
	l := newSeeded(t)

	empty := l.Stats()
	assert.Equal(t, 0, empty.TotalTrades)
	assert.Equal(t, 0.0, empty.WinRate)
	assert.Equal(t, 200000.0, empty.TotalPortfolioValueUSD)

	_, err := l.ApplyTrade(types.ExecutionPlan{BuyChain: chainB, SellChain: chainA, StartingAsset: types.Quote, TargetAsset: types.Base, Amount: 1500, BuyPrice: 0.9998, SellPrice: 1.0002, GasCostUSD: 0.1})
	require.NoError(t, err)
	// loses money after gas
	_, err = l.ApplyTrade(types.ExecutionPlan{BuyChain: chainA, SellChain: chainB, StartingAsset: types.Base, TargetAsset: types.Quote, Amount: 100, BuyPrice: 1, SellPrice: 1.0001, GasCostUSD: 1})
	require.NoError(t, err)

	stats := l.Stats()
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.ProfitableTrades)
	assert.Equal(t, 0.5, stats.WinRate)

	trades := l.Trades()
	assert.InDelta(t, trades[0].NetProfitUSD+trades[1].NetProfitUSD, stats.TotalProfitUSD, 1e-12)
	assert.InDelta(t, 200000+trades[0].GrossProfit+trades[1].GrossProfit, stats.TotalPortfolioValueUSD, 1e-7)

	// idempotent
	assert.Equal(t, stats, l.Stats())
}

func TestTradesReturnsCopy(t *testing.T) {
	l := newSeeded(t)
	_, err := l.ApplyTrade(types.ExecutionPlan{BuyChain: chainB, SellChain: chainA, StartingAsset: types.Quote, TargetAsset: types.Base, Amount: 200, BuyPrice: 0.99, SellPrice: 1})
	require.NoError(t, err)

	trades := l.Trades()
	trades[0].Amount = 1
	assert.Equal(t, 200.0, l.Trades()[0].Amount)
}

func TestConcurrentApply(t *testing.T) {
	l := newSeeded(t)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.ApplyTrade(types.ExecutionPlan{
				BuyChain: chainA, SellChain: chainB,
				StartingAsset: types.Quote, TargetAsset: types.Base,
				Amount: 300, BuyPrice: 1, SellPrice: 1.001,
			})
		}()
	}
	wg.Wait()

	a, _ := l.Balance(chainA)
	assert.GreaterOrEqual(t, a.Quote, 0.0)
	// 50000 / 300 = 166 trades fit
	assert.Len(t, l.Trades(), 166)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = New(map[types.Chain]types.Balance{chainA: {Base: -1}})
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = New(map[types.Chain]types.Balance{chainA: {Base: math.NaN()}})
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = New(map[types.Chain]types.Balance{chainA: {Quote: math.Inf(1)}})
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	l := newSeeded(t)
	assert.Equal(t, []types.Chain{chainA, chainB}, l.Chains())
}
