package challenge

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/holdergate/holdergate/internal/config"
	"github.com/holdergate/holdergate/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		SignInDomain:    "verify.example.com",
		SignInURI:       "https://verify.example.com",
		SignInStatement: "HolderGate Verification",
		ChainID:         "1",
		ChallengeTTL:    10 * time.Minute,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), testConfig(), logging.Discard())
}

func signSubmission(t *testing.T, svc *Service, key *ecdsa.PrivateKey, requestID string) Submission {
	t.Helper()
	address := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())

	msg := Message{
		Domain:    svc.domain,
		Address:   address,
		ChainID:   svc.chainID,
		URI:       svc.uri,
		Version:   svc.version,
		Statement: svc.statement,
		Type:      MessageType,
		Nonce:     requestID,
	}
	payload, err := msg.Canonical()
	if err != nil {
		t.Fatalf("canonical message: %v", err)
	}

	hash := crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(payload), payload)))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("sign message: %v", err)
	}
	// Wallets report V as 27/28.
	sig[crypto.RecoveryIDOffset] += 27

	return Submission{
		Domain:    msg.Domain,
		Address:   address,
		ChainID:   msg.ChainID,
		URI:       msg.URI,
		Version:   msg.Version,
		Statement: msg.Statement,
		Type:      msg.Type,
		Nonce:     requestID,
		Signature: hexutil.Encode(sig),
	}
}

func TestVerifyHappyPath(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ch, err := svc.Issue(ctx, "discord-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sub := signSubmission(t, svc, key, ch.RequestID)

	verified, err := svc.Verify(ctx, sub)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.DirectoryUserID != "discord-1" {
		t.Fatalf("expected discord-1, got %s", verified.DirectoryUserID)
	}
	want := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	if verified.WalletAddress != want {
		t.Fatalf("expected wallet %s, got %s", want, verified.WalletAddress)
	}
}

func TestVerifyChallengeSingleUse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ch, err := svc.Issue(ctx, "discord-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	key, _ := crypto.GenerateKey()
	sub := signSubmission(t, svc, key, ch.RequestID)

	if _, err := svc.Verify(ctx, sub); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if _, err := svc.Verify(ctx, sub); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed on replay, got %v", err)
	}
}

func TestVerifyUnknownChallenge(t *testing.T) {
	svc := newTestService(t)

	key, _ := crypto.GenerateKey()
	sub := signSubmission(t, svc, key, "never-issued")

	if _, err := svc.Verify(context.Background(), sub); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyExpiredChallenge(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ch, err := svc.Issue(ctx, "discord-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	key, _ := crypto.GenerateKey()
	sub := signSubmission(t, svc, key, ch.RequestID)

	if _, err := svc.Verify(ctx, sub); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyTamperedMessage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	key, _ := crypto.GenerateKey()
	otherKey, _ := crypto.GenerateKey()

	cases := []struct {
		name   string
		mutate func(*Submission)
	}{
		{"address swapped after signing", func(s *Submission) {
			s.Address = strings.ToLower(crypto.PubkeyToAddress(otherKey.PublicKey).Hex())
		}},
		{"statement changed", func(s *Submission) { s.Statement = "Free mint" }},
		{"chain id changed", func(s *Submission) { s.ChainID = "5" }},
		{"domain changed", func(s *Submission) { s.Domain = "evil.example.com" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch, err := svc.Issue(ctx, "discord-1")
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			sub := signSubmission(t, svc, key, ch.RequestID)
			tc.mutate(&sub)

			_, err = svc.Verify(ctx, sub)
			if !errors.Is(err, ErrMessageMismatch) && !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("expected mismatch or invalid signature, got %v", err)
			}
		})
	}
}

func TestVerifyWrongSigner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ch, err := svc.Issue(ctx, "discord-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	key, _ := crypto.GenerateKey()
	imposter, _ := crypto.GenerateKey()

	// Imposter signs a message claiming the victim's address.
	victim := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	msg := Message{
		Domain:    svc.domain,
		Address:   victim,
		ChainID:   svc.chainID,
		URI:       svc.uri,
		Version:   svc.version,
		Statement: svc.statement,
		Type:      MessageType,
		Nonce:     ch.RequestID,
	}
	payload, _ := msg.Canonical()
	hash := crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(payload), payload)))
	sig, _ := crypto.Sign(hash, imposter)
	sig[crypto.RecoveryIDOffset] += 27

	sub := Submission{
		Domain: msg.Domain, Address: victim, ChainID: msg.ChainID, URI: msg.URI,
		Version: msg.Version, Statement: msg.Statement, Type: msg.Type,
		Nonce: ch.RequestID, Signature: hexutil.Encode(sig),
	}

	if _, err := svc.Verify(ctx, sub); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyGarbageSignature(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ch, err := svc.Issue(ctx, "discord-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	key, _ := crypto.GenerateKey()
	sub := signSubmission(t, svc, key, ch.RequestID)
	sub.Signature = "0xdeadbeef"

	if _, err := svc.Verify(ctx, sub); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
