package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) LinkWallet(_ context.Context, directoryID, walletAddress string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	u, exists := r.users[directoryID]
	if !exists {
		u = User{DirectoryID: directoryID, CreatedAt: now}
	}
	u.WalletAddress = strings.ToLower(walletAddress)
	u.LinkedAt = now
	r.users[directoryID] = u
	return u, nil
}

func (r *memoryRepository) FindByDirectoryID(_ context.Context, directoryID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[directoryID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepository) ListLinked(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []User
	for _, u := range r.users {
		if u.Linked() {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].DirectoryID < users[j].DirectoryID })
	return users, nil
}
