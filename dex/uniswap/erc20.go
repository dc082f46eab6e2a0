package uniswap

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Token is ERC-20 metadata for one side of a pool
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

const erc20ABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "symbol",
	"outputs": [{"name": "", "type": "string"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "decimals",
	"outputs": [{"name": "", "type": "uint8"}],
	"stateMutability": "view",
	"type": "function"
}]`

var erc20ABI = mustParseABI(erc20ABIJson)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// readToken loads symbol and decimals for a token address
func readToken(ctx context.Context, caller bind.ContractCaller, address common.Address) (*Token, error) {
	contract := bind.NewBoundContract(address, erc20ABI, caller, nil, nil)
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := contract.Call(opts, &out, "symbol"); err != nil {
		return nil, fmt.Errorf("failed to get symbol of %s: %w", address.Hex(), err)
	}
	symbol, ok := out[0].(string)
	if !ok {
		return nil, fmt.Errorf("failed to parse symbol of %s", address.Hex())
	}

	out = nil
	if err := contract.Call(opts, &out, "decimals"); err != nil {
		return nil, fmt.Errorf("failed to get decimals of %s: %w", address.Hex(), err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("failed to parse decimals of %s", address.Hex())
	}

	return &Token{Address: address, Symbol: symbol, Decimals: decimals}, nil
}

// readAddress calls a no-arg view method returning an address
func readAddress(contract *bind.BoundContract, opts *bind.CallOpts, method string) (common.Address, error) {
	var out []interface{}
	if err := contract.Call(opts, &out, method); err != nil {
		return common.Address{}, fmt.Errorf("failed to get %s: %w", method, err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("failed to parse %s address", method)
	}
	return addr, nil
}
