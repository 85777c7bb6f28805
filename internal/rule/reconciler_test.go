package rule

import (
	"context"
	"errors"
	"testing"

	"github.com/holdergate/holdergate/internal/directory"
	"github.com/holdergate/holdergate/internal/logging"
	"github.com/holdergate/holdergate/internal/tier"
	"github.com/holdergate/holdergate/internal/user"
)

func TestReconcileIsolatesFailedTierLookup(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	defs := testTiers()
	for _, d := range defs {
		dir.PutRole(directory.Role{ID: d.RoleID, Name: d.Name})
	}
	dir.FailFetchRole("role-silver", errors.New("discord 500"))

	rec := NewReconciler(dir, nil, logging.Discard(), 2)
	u := user.User{DirectoryID: "discord-1"}
	qualified := tier.Evaluate(30, defs)

	outcomes, err := rec.Reconcile(context.Background(), u, defs, qualified, 30)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected outcomes for all 3 tiers, got %d", len(outcomes))
	}

	byName := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.TierName] = o
	}
	if byName["silver"].Err == nil {
		t.Fatal("expected silver outcome flagged with an error")
	}
	if !byName["bronze"].Qualified || !byName["gold"].Qualified {
		t.Fatal("sibling tiers must still evaluate")
	}
	if !dir.Holds("discord-1", "role-bronze") || !dir.Holds("discord-1", "role-gold") {
		t.Fatal("sibling tier roles must still be granted")
	}
	if dir.Holds("discord-1", "role-silver") {
		t.Fatal("failed tier must not mutate roles")
	}
}

func TestReconcileUnknownRoleIsNotQualified(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	defs := testTiers()
	// role-gold intentionally never registered.
	dir.PutRole(directory.Role{ID: "role-bronze", Name: "bronze"})
	dir.PutRole(directory.Role{ID: "role-silver", Name: "silver"})

	rec := NewReconciler(dir, nil, logging.Discard(), 2)
	qualified := tier.Evaluate(30, defs)

	outcomes, err := rec.Reconcile(context.Background(), user.User{DirectoryID: "discord-1"}, defs, qualified, 30)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	for _, o := range outcomes {
		if o.TierName == "gold" {
			if o.Qualified {
				t.Fatal("misconfigured tier must report effective non-qualification")
			}
			if !errors.Is(o.Err, directory.ErrUnknownRole) {
				t.Fatalf("expected ErrUnknownRole, got %v", o.Err)
			}
		}
	}
}

func TestReconcileCapacityCeiling(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	defs := []tier.Definition{{Name: "bronze", RoleID: "role-bronze", Threshold: 0, Capacity: 1}}
	dir.PutRole(directory.Role{ID: "role-bronze", Name: "bronze"})
	dir.GrantRole("holder", "role-bronze") // capacity consumed

	rec := NewReconciler(dir, nil, logging.Discard(), 2)
	qualified := map[string]bool{"bronze": true}

	outcomes, err := rec.Reconcile(context.Background(), user.User{DirectoryID: "discord-1"}, defs, qualified, 5)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	o := outcomes[0]
	if !o.Qualified || o.RoleAvail {
		t.Fatalf("expected qualified=true roleAvail=false, got %+v", o)
	}
	if dir.Holds("discord-1", "role-bronze") {
		t.Fatal("role granted past capacity")
	}
	if dir.Adds != 0 {
		t.Fatalf("expected no add calls, got %d", dir.Adds)
	}
}

func TestReconcileCapacityNeverTriggersRemoval(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	defs := []tier.Definition{{Name: "bronze", RoleID: "role-bronze", Threshold: 0, Capacity: 1}}
	dir.PutRole(directory.Role{ID: "role-bronze", Name: "bronze"})
	dir.GrantRole("discord-1", "role-bronze") // the user fills the capacity themselves

	rec := NewReconciler(dir, nil, logging.Discard(), 2)

	outcomes, err := rec.Reconcile(context.Background(), user.User{DirectoryID: "discord-1"}, defs, map[string]bool{"bronze": true}, 5)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcomes[0].RoleAvail {
		t.Fatal("expected capacity reported exhausted")
	}
	if !dir.Holds("discord-1", "role-bronze") {
		t.Fatal("previously-held role must be left untouched when capacity is exhausted")
	}
	if dir.Removes != 0 {
		t.Fatalf("capacity must never trigger removal, saw %d removes", dir.Removes)
	}
}

func TestReconcileUnlimitedCapacitySkipsCount(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	defs := []tier.Definition{{Name: "bronze", RoleID: "role-bronze", Threshold: 0}}
	dir.PutRole(directory.Role{ID: "role-bronze", Name: "bronze"})

	rec := NewReconciler(dir, nil, logging.Discard(), 2)

	outcomes, err := rec.Reconcile(context.Background(), user.User{DirectoryID: "discord-1"}, defs, map[string]bool{"bronze": true}, 5)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !outcomes[0].RoleAvail {
		t.Fatal("unlimited tier must always report availability")
	}
	if !dir.Holds("discord-1", "role-bronze") {
		t.Fatal("expected role granted")
	}
}
