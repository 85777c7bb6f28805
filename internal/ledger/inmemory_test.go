package ledger

import (
	"context"
	"errors"
	"testing"
)

func TestInMemorySeedAndRead(t *testing.T) {
	r := NewInMemory()
	SeedBalance(r, "0xABCDEF", 12)

	got, err := r.BalanceOf(context.Background(), "0xabcdef")
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if got != 12 {
		t.Fatalf("expected balance 12, got %d", got)
	}

	got, err = r.BalanceOf(context.Background(), "0xother")
	if err != nil {
		t.Fatalf("balance of unseeded wallet: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero balance for unseeded wallet, got %d", got)
	}
	if QueryCount(r) != 2 {
		t.Fatalf("expected 2 queries, got %d", QueryCount(r))
	}
}

func TestInMemoryFailQueries(t *testing.T) {
	r := NewInMemory()
	FailQueries(r, errors.New("rpc down"))

	if _, err := r.BalanceOf(context.Background(), "0xabc"); !errors.Is(err, ErrQuery) {
		t.Fatalf("expected ErrQuery, got %v", err)
	}

	FailQueries(r, nil)
	if _, err := r.BalanceOf(context.Background(), "0xabc"); err != nil {
		t.Fatalf("expected recovery after clearing failure, got %v", err)
	}
}
