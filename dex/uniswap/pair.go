package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Pair contract ABI
const pairABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "getReserves",
	"outputs": [
		{"name": "reserve0", "type": "uint112"},
		{"name": "reserve1", "type": "uint112"},
		{"name": "blockTimestampLast", "type": "uint32"}
	],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "token0",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "token1",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

var pairABI = mustParseABI(pairABIJson)

// UniswapV2Pair reads a V2-style constant product pair
type UniswapV2Pair struct {
	contract *bind.BoundContract
	caller   bind.ContractCaller
	address  common.Address

	mu     sync.Mutex
	token0 *Token
	token1 *Token
}

// NewUniswapV2Pair binds a pair at address. caller is typically an *ethclient.Client.
func NewUniswapV2Pair(address common.Address, caller bind.ContractCaller) *UniswapV2Pair {
	return &UniswapV2Pair{
		contract: bind.NewBoundContract(address, pairABI, caller, nil, nil),
		caller:   caller,
		address:  address,
	}
}

// GetReserves returns the current reserves of the pair
func (p *UniswapV2Pair) GetReserves(ctx context.Context) (reserve0 *big.Int, reserve1 *big.Int, err error) {
	var out []interface{}
	err = p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get reserves: %w", err)
	}

	reserve0, ok := out[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("failed to parse reserve0")
	}
	reserve1, ok = out[1].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("failed to parse reserve1")
	}

	return reserve0, reserve1, nil
}

// Tokens returns token metadata, loading it from chain on first success
func (p *UniswapV2Pair) Tokens(ctx context.Context) (*Token, *Token, error) {
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

func loadPairTokens(ctx context.Context, contract *bind.BoundContract, caller bind.ContractCaller) (*Token, *Token, error) {
	opts := &bind.CallOpts{Context: ctx}
	addr0, err := readAddress(contract, opts, "token0")
	if err != nil {
		return nil, nil, err
	}
	addr1, err := readAddress(contract, opts, "token1")
	if err != nil {
		return nil, nil, err
	}

	t0, err := readToken(ctx, caller, addr0)
	if err != nil {
		return nil, nil, err
	}
	t1, err := readToken(ctx, caller, addr1)
	if err != nil {
		return nil, nil, err
	}
	return t0, t1, nil
}
