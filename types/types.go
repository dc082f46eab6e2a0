package types

import (
	"fmt"
	"math"
	"strings"
)

// Chain identifies one of the monitored networks (e.g. "avalanche", "sonic")
type Chain string

func (c Chain) String() string {
	return string(c)
}

// Asset is one of the two stablecoin roles tracked by the engine
type Asset int

const (
	Base Asset = iota
	Quote
)

func (a Asset) String() string {
	switch a {
	case Base:
		return "base"
	case Quote:
		return "quote"
	default:
		return "unknown"
	}
}

// Other returns the counter asset
func (a Asset) Other() Asset {
	if a == Base {
		return Quote
	}
	return Base
}

// ParseAsset accepts "base"/"quote" in any case
func ParseAsset(s string) (Asset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base":
		return Base, nil
	case "quote":
		return Quote, nil
	}
	return Base, fmt.Errorf("unknown asset %q", s)
}

// PricePair is a pool price expressed in both directions.
// BaseToQuote is quote units per 1 base unit; QuoteToBase is its inverse.
type PricePair struct {
	BaseToQuote float64
	QuoteToBase float64
	TimestampMs int64
}

// Valid reports whether both sides are strictly positive finite numbers
func (p PricePair) Valid() bool {
	return validPrice(p.BaseToQuote) && validPrice(p.QuoteToBase)
}

// CostOf returns how many units of the counter asset buy one unit of target
func (p PricePair) CostOf(target Asset) float64 {
	if target == Base {
		return p.BaseToQuote
	}
	return p.QuoteToBase
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// GasEstimate is the latest gas reading for a chain and operation
type GasEstimate struct {
	GasPriceWei  uint64
	GasUnits     uint64
	TotalCostWei uint64
	TimestampMs  int64
}

// Balance holds both assets on one chain
type Balance struct {
	Base        float64
	Quote       float64
	TimestampMs int64
}

// Of returns the holding of the given asset
func (b Balance) Of(a Asset) float64 {
	if a == Base {
		return b.Base
	}
	return b.Quote
}

// Total values the balance at 1 USD per unit
func (b Balance) Total() float64 {
	return b.Base + b.Quote
}

// ChainQuote pairs a chain with its normalized price for one cycle
type ChainQuote struct {
	Chain  Chain
	Prices PricePair
}
