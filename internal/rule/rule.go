package rule

import (
	"context"
	"fmt"

	"github.com/holdergate/holdergate/internal/user"
)

// Result is the transient output of a qualification check. It is produced
// fresh on every check and never persisted.
type Result struct {
	// Measurement is the non-negative quantity the tiers are thresholds
	// over; for the holdings rule it is the wallet's token balance.
	Measurement int64
}

// Outcome reports what one reconciliation run decided for one tier.
type Outcome struct {
	TierName    string
	RoleID      string
	Qualified   bool
	RoleAvail   bool
	Measurement int64
	// Err is set when this tier's reconciliation failed; the tier is
	// flagged rather than the whole outcome list being discarded.
	Err error
}

// Rule turns an external measurement into directory role changes. Check
// and Execute are separate so a caller can observe the measurement even
// when it chooses not to reconcile.
type Rule interface {
	Name() string
	Check(ctx context.Context, u user.User) (Result, error)
	Execute(ctx context.Context, u user.User, result Result) ([]Outcome, error)
}

// Registry holds the configured rules keyed by name. New rule kinds are
// added by registering a constructor for their type, not by branching on
// type strings at call sites.
type Registry struct {
	rules  []Rule
	byName map[string]Rule
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Rule)}
}

// Register adds a rule; duplicate names are a configuration error.
func (r *Registry) Register(rule Rule) error {
	if _, exists := r.byName[rule.Name()]; exists {
		return fmt.Errorf("rule %q registered twice", rule.Name())
	}
	r.byName[rule.Name()] = rule
	r.rules = append(r.rules, rule)
	return nil
}

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// Lookup fetches a rule by name.
func (r *Registry) Lookup(name string) (Rule, bool) {
	rule, ok := r.byName[name]
	return rule, ok
}
