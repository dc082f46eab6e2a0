package price

import (
	"fmt"
	"strings"
	"time"

	"github.com/michaelpento.lv/stablearb/dex"
	"github.com/michaelpento.lv/stablearb/types"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
)

// Normalizer maps a pool's token0/token1 price onto the engine's base/quote roles
type Normalizer struct {
	baseSymbol  string
	quoteSymbol string
	now         func() time.Time
}

// NewNormalizer creates a normalizer for the given base and quote symbols
func NewNormalizer(baseSymbol, quoteSymbol string) *Normalizer {
	return &Normalizer{
		baseSymbol:  baseSymbol,
		quoteSymbol: quoteSymbol,
		now:         time.Now,
	}
}

// Normalize converts a raw pool reading into a PricePair.
// Symbols are compared case-insensitively; the pool must hold both assets.
func (n *Normalizer) Normalize(p *dex.PoolPrice) (types.PricePair, error) {
	if p == nil {
		return types.PricePair{}, fmt.Errorf("%w: no pool reading", types.ErrPriceUnavailable)
	}

	var token0IsBase bool
	switch {
	case strings.EqualFold(p.Token0Symbol, n.baseSymbol) && strings.EqualFold(p.Token1Symbol, n.quoteSymbol):
		token0IsBase = true
	case strings.EqualFold(p.Token1Symbol, n.baseSymbol) && strings.EqualFold(p.Token0Symbol, n.quoteSymbol):
		token0IsBase = false
	default:
		return types.PricePair{}, fmt.Errorf("%w: pool tokens %s/%s do not match %s/%s",
			types.ErrPriceUnavailable, p.Token0Symbol, p.Token1Symbol, n.baseSymbol, n.quoteSymbol)
	}

	pair, err := Normalize(p.RawPrice, token0IsBase)
	if err != nil {
		return types.PricePair{}, err
	}
	pair.TimestampMs = n.now().UnixMilli()
	return pair, nil
}

// Normalize builds a PricePair from a token1-per-token0 price.
// Zero or non-finite prices are rejected rather than propagated.
func Normalize(raw float64, token0IsBase bool) (types.PricePair, error) {
	if !umath.IsFinitePositive(raw) {
		return types.PricePair{}, fmt.Errorf("%w: raw price %v", types.ErrPriceUnavailable, raw)
	}

	baseToQuote := raw
	if !token0IsBase {
		baseToQuote = 1 / raw
	}
	quoteToBase := 1 / baseToQuote

	pair := types.PricePair{BaseToQuote: baseToQuote, QuoteToBase: quoteToBase}
	if !pair.Valid() {
		return types.PricePair{}, fmt.Errorf("%w: raw price %v is out of range", types.ErrPriceUnavailable, raw)
	}
	return pair, nil
}
