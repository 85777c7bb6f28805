package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type inMemoryReader struct {
	mu       sync.RWMutex
	balances map[string]int64
	failWith error
	calls    int
}

// NewInMemory creates a concurrency-safe in-memory reader useful for unit tests.
func NewInMemory() Reader {
	return &inMemoryReader{balances: make(map[string]int64)}
}

func (r *inMemoryReader) BalanceOf(_ context.Context, walletAddress string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.failWith != nil {
		return 0, fmt.Errorf("%w: %v", ErrQuery, r.failWith)
	}
	return r.balances[strings.ToLower(walletAddress)], nil
}
