package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// balanceOfABI is the only fragment of the asset contract this service
// needs; it covers both ERC-20 and ERC-721 balanceOf.
const balanceOfABI = `[{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the slice of the Ethereum client used here, satisfied
// by *ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthReader reads token balances from a single asset contract over
// JSON-RPC.
type EthReader struct {
	client   ContractCaller
	contract common.Address
	abi      abi.ABI
	timeout  time.Duration
}

// NewEthReader builds a Reader for the given asset contract address.
func NewEthReader(client ContractCaller, contractAddress string, timeout time.Duration) (*EthReader, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("ledger timeout must be positive")
	}

	parsed, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse balanceOf abi: %w", err)
	}

	return &EthReader{
		client:   client,
		contract: common.HexToAddress(contractAddress),
		abi:      parsed,
		timeout:  timeout,
	}, nil
}

// BalanceOf performs an eth_call of balanceOf(address) for the wallet.
func (r *EthReader) BalanceOf(ctx context.Context, walletAddress string) (int64, error) {
	if !common.IsHexAddress(walletAddress) {
		return 0, fmt.Errorf("%w: invalid wallet address %q", ErrQuery, walletAddress)
	}

	data, err := r.abi.Pack("balanceOf", common.HexToAddress(walletAddress))
	if err != nil {
		return 0, fmt.Errorf("%w: pack call: %v", ErrQuery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: balanceOf %s: %v", ErrQuery, walletAddress, err)
	}

	out, err := r.abi.Unpack("balanceOf", raw)
	if err != nil || len(out) != 1 {
		return 0, fmt.Errorf("%w: unpack balanceOf result: %v", ErrQuery, err)
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected balanceOf result type %T", ErrQuery, out[0])
	}
	if !balance.IsInt64() || balance.Sign() < 0 {
		return 0, fmt.Errorf("%w: balance %s out of range", ErrQuery, balance)
	}

	return balance.Int64(), nil
}
