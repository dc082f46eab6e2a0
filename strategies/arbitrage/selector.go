package arbitrage

import (
	"github.com/michaelpento.lv/stablearb/types"
)

// SnapshotReader exposes current balances across chains
type SnapshotReader interface {
	Snapshot() map[types.Chain]types.Balance
}

// SelectTarget returns the asset that is scarcer system-wide. Base wins ties.
// It is recomputed from live balances on every call.
func SelectTarget(ledger SnapshotReader) types.Asset {
	var totalBase, totalQuote float64
	for _, b := range ledger.Snapshot() {
		totalBase += b.Base
		totalQuote += b.Quote
	}

	if totalBase <= totalQuote {
		return types.Base
	}
	return types.Quote
}
