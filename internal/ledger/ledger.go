package ledger

import (
	"context"
	"errors"
)

// ErrQuery wraps any failure or timeout talking to the chain. Callers must
// treat it as "could not determine the balance this cycle", never as a
// zero balance.
var ErrQuery = errors.New("ledger query failed")

// Reader answers balance-of queries for the configured asset contract.
// Implementations bound every call with a timeout.
type Reader interface {
	BalanceOf(ctx context.Context, walletAddress string) (int64, error)
}
