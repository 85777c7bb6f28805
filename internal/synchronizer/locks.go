package synchronizer

import "sync"

// userLocks serializes reconciliation per directory user so an on-demand
// run and a sweep can never mutate the same user's role set concurrently.
// The population is bounded by guild membership, so entries are not evicted.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for the given user and returns its release func.
func (l *userLocks) lock(directoryID string) func() {
	l.mu.Lock()
	m, ok := l.locks[directoryID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[directoryID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
