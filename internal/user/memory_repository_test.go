package user

import (
	"context"
	"errors"
	"testing"
)

func TestLinkWalletUpserts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.LinkWallet(ctx, "discord-1", "0xAAA")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if first.WalletAddress != "0xaaa" {
		t.Fatalf("wallet must be stored lower-cased, got %s", first.WalletAddress)
	}

	second, err := repo.LinkWallet(ctx, "discord-1", "0xBBB")
	if err != nil {
		t.Fatalf("relink: %v", err)
	}
	if second.WalletAddress != "0xbbb" {
		t.Fatalf("re-verification must overwrite the wallet, got %s", second.WalletAddress)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("relinking must not reset the creation time")
	}

	found, err := repo.FindByDirectoryID(ctx, "discord-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.WalletAddress != "0xbbb" {
		t.Fatalf("expected 0xbbb, got %s", found.WalletAddress)
	}
}

func TestFindUnknownUser(t *testing.T) {
	repo := NewMemoryRepository()
	if _, err := repo.FindByDirectoryID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListLinkedIsSorted(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if _, err := repo.LinkWallet(ctx, id, "0x"+id); err != nil {
			t.Fatalf("link %s: %v", id, err)
		}
	}

	users, err := repo.ListLinked(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i, want := range []string{"a", "b", "c"} {
		if users[i].DirectoryID != want {
			t.Fatalf("expected %s at %d, got %s", want, i, users[i].DirectoryID)
		}
	}
}
