package ledger

import "strings"

// SeedBalance is a test helper that seeds the balance for a wallet when
// using the in-memory reader.
func SeedBalance(r Reader, walletAddress string, balance int64) {
	if mem, ok := r.(*inMemoryReader); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[strings.ToLower(walletAddress)] = balance
	}
}

// FailQueries makes the in-memory reader fail every subsequent call with
// the supplied error wrapped in ErrQuery. Passing nil restores success.
func FailQueries(r Reader, err error) {
	if mem, ok := r.(*inMemoryReader); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.failWith = err
	}
}

// QueryCount reports how many balance queries the in-memory reader served.
func QueryCount(r Reader) int {
	if mem, ok := r.(*inMemoryReader); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		return mem.calls
	}
	return 0
}
