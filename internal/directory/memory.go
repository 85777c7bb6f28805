package directory

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDirectory is an in-memory Directory for tests. It records mutation
// counts so idempotence can be asserted, and can be told to fail specific
// role lookups to exercise fault isolation.
type MemoryDirectory struct {
	mu          sync.Mutex
	roles       map[string]Role
	memberRoles map[string]map[string]bool
	failFetch   map[string]error

	Adds    int
	Removes int
}

// NewMemoryDirectory builds an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		roles:       make(map[string]Role),
		memberRoles: make(map[string]map[string]bool),
		failFetch:   make(map[string]error),
	}
}

// PutRole registers a role definition.
func (d *MemoryDirectory) PutRole(role Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[role.ID] = role
}

// GrantRole assigns a role to a member directly, bypassing counters.
func (d *MemoryDirectory) GrantRole(userID, roleID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grantLocked(userID, roleID)
}

// FailFetchRole makes FetchRole for the given role id return err.
func (d *MemoryDirectory) FailFetchRole(roleID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failFetch[roleID] = err
}

func (d *MemoryDirectory) FetchRole(_ context.Context, roleID string) (Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failFetch[roleID]; err != nil {
		return Role{}, err
	}
	role, ok := d.roles[roleID]
	if !ok {
		return Role{}, fmt.Errorf("role %s: %w", roleID, ErrUnknownRole)
	}
	return role, nil
}

func (d *MemoryDirectory) MemberRoles(_ context.Context, userID string) (map[string]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	held := make(map[string]bool, len(d.memberRoles[userID]))
	for id, ok := range d.memberRoles[userID] {
		if ok {
			held[id] = true
		}
	}
	return held, nil
}

func (d *MemoryDirectory) AddRole(_ context.Context, userID, roleID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Adds++
	d.grantLocked(userID, roleID)
	return nil
}

func (d *MemoryDirectory) RemoveRole(_ context.Context, userID, roleID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Removes++
	delete(d.memberRoles[userID], roleID)
	return nil
}

func (d *MemoryDirectory) RoleMemberCount(_ context.Context, roleID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, held := range d.memberRoles {
		if held[roleID] {
			count++
		}
	}
	return count, nil
}

// Holds reports whether the member currently has the role.
func (d *MemoryDirectory) Holds(userID, roleID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.memberRoles[userID][roleID]
}

func (d *MemoryDirectory) grantLocked(userID, roleID string) {
	if d.memberRoles[userID] == nil {
		d.memberRoles[userID] = make(map[string]bool)
	}
	d.memberRoles[userID][roleID] = true
}
