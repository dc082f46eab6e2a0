package gas

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
)

// Aggregator ABI, only latestRoundData and decimals
const aggregatorABIJson = `[{
	"inputs": [],
	"name": "decimals",
	"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"inputs": [],
	"name": "latestRoundData",
	"outputs": [
		{"internalType": "uint80", "name": "roundId", "type": "uint80"},
		{"internalType": "int256", "name": "answer", "type": "int256"},
		{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
		{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
		{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
	],
	"stateMutability": "view",
	"type": "function"
}]`

// ChainlinkFeed reads a native/USD price from an aggregator contract
type ChainlinkFeed struct {
	contract *bind.BoundContract
	address  common.Address

	mu       sync.Mutex
	decimals *uint8
}

// NewChainlinkFeed binds the aggregator at address
func NewChainlinkFeed(address common.Address, caller bind.ContractCaller) (*ChainlinkFeed, error) {
	parsedABI, err := abi.JSON(strings.NewReader(aggregatorABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	return &ChainlinkFeed{
		contract: bind.NewBoundContract(address, parsedABI, caller, nil, nil),
		address:  address,
	}, nil
}

// LatestUSDPrice returns the latest answer scaled by the feed decimals
func (f *ChainlinkFeed) LatestUSDPrice(ctx context.Context) (float64, error) {
	opts := &bind.CallOpts{Context: ctx}

	decimals, err := f.feedDecimals(opts)
	if err != nil {
		return 0, err
	}

	var out []interface{}
	if err := f.contract.Call(opts, &out, "latestRoundData"); err != nil {
		return 0, fmt.Errorf("failed to get latest round from %s: %w", f.address.Hex(), err)
	}
	answer, ok := out[1].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("failed to parse answer from %s", f.address.Hex())
	}
	if answer.Sign() <= 0 {
		return 0, fmt.Errorf("non-positive answer %s from %s", answer.String(), f.address.Hex())
	}

	return umath.ScaleDown(answer, decimals), nil
}

func (f *ChainlinkFeed) feedDecimals(opts *bind.CallOpts) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.decimals != nil {
		return *f.decimals, nil
	}

	var out []interface{}
	if err := f.contract.Call(opts, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("failed to get decimals from %s: %w", f.address.Hex(), err)
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("failed to parse decimals from %s", f.address.Hex())
	}
	f.decimals = &d
	return d, nil
}

// StaticPrice is a NativePriceSource that always returns the same value
type StaticPrice float64

func (s StaticPrice) LatestUSDPrice(ctx context.Context) (float64, error) {
	if !umath.IsFinitePositive(float64(s)) {
		return 0, fmt.Errorf("invalid static price %v", float64(s))
	}
	return float64(s), nil
}
