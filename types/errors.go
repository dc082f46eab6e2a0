package types

import "errors"

var (
	ErrPriceUnavailable       = errors.New("price unavailable")
	ErrGasEstimateUnavailable = errors.New("gas estimate unavailable")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrLedgerCommitRejected   = errors.New("ledger commit rejected")
	ErrConfiguration          = errors.New("configuration error")
)
