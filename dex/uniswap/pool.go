package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// V3 pool ABI, only what the reader touches
const poolV3ABIJson = `[{
	"inputs": [],
	"name": "slot0",
	"outputs": [
		{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
		{"internalType": "int24", "name": "tick", "type": "int24"},
		{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
		{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
		{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
		{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
		{"internalType": "bool", "name": "unlocked", "type": "bool"}
	],
	"stateMutability": "view",
	"type": "function"
}, {
	"inputs": [],
	"name": "token0",
	"outputs": [{"name": "", "type": "address"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"inputs": [],
	"name": "token1",
	"outputs": [{"name": "", "type": "address"}],
	"stateMutability": "view",
	"type": "function"
}]`

var poolV3ABI = mustParseABI(poolV3ABIJson)

// UniswapV3Pool reads a concentrated liquidity pool through slot0
type UniswapV3Pool struct {
	contract *bind.BoundContract
	caller   bind.ContractCaller
	address  common.Address

	mu     sync.Mutex
	token0 *Token
	token1 *Token
}

// NewUniswapV3Pool binds a pool at address
func NewUniswapV3Pool(address common.Address, caller bind.ContractCaller) *UniswapV3Pool {
	return &UniswapV3Pool{
		contract: bind.NewBoundContract(address, poolV3ABI, caller, nil, nil),
		caller:   caller,
		address:  address,
	}
}

// SqrtPriceX96 returns the current sqrt price from slot0
func (p *UniswapV3Pool) SqrtPriceX96(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "slot0"); err != nil {
		return nil, fmt.Errorf("failed to get slot0: %w", err)
	}
	sqrtPrice, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse sqrtPriceX96")
	}
	return sqrtPrice, nil
}

// Tokens returns token metadata, loading it from chain on first success
func (p *UniswapV3Pool) Tokens(ctx context.Context) (*Token, *Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token0 != nil && p.token1 != nil {
		return p.token0, p.token1, nil
	}

	t0, t1, err := loadPairTokens(ctx, p.contract, p.caller)
	if err != nil {
		return nil, nil, err
	}
	p.token0, p.token1 = t0, t1
	return t0, t1, nil
}
