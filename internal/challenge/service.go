package challenge

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/holdergate/holdergate/internal/config"
)

// Submission carries the client-submitted message fields plus signature.
// The nonce is the request id issued to the sign-in page.
type Submission struct {
	Domain    string
	Address   string
	ChainID   string
	URI       string
	Version   string
	Statement string
	Type      string
	Nonce     string
	Signature string
}

// Service implements the challenge/response protocol binding a wallet
// address to one sign-in attempt.
type Service struct {
	store  Store
	logger *slog.Logger

	domain    string
	uri       string
	statement string
	chainID   string
	version   string
	ttl       time.Duration

	now func() time.Time
}

// NewService builds the challenge service from the sign-in configuration.
func NewService(store Store, cfg config.Config, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		logger:    logger,
		domain:    cfg.SignInDomain,
		uri:       cfg.SignInURI,
		statement: cfg.SignInStatement,
		chainID:   cfg.ChainID,
		version:   cfg.MessageVersion(),
		ttl:       cfg.ChallengeTTL,
		now:       time.Now,
	}
}

// Issue creates a fresh unpredictable challenge for the given directory
// user, for embedding in their sign-in page URL.
func (s *Service) Issue(ctx context.Context, directoryUserID string) (Challenge, error) {
	if directoryUserID == "" {
		return Challenge{}, fmt.Errorf("directory user id is required")
	}
	ch := Challenge{
		RequestID:       uuid.NewString(),
		DirectoryUserID: directoryUserID,
		IssuedAt:        s.now().UTC(),
	}
	if err := s.store.Save(ctx, ch); err != nil {
		return Challenge{}, fmt.Errorf("issue challenge: %w", err)
	}
	return ch, nil
}

// TTL reports the configured challenge lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Verify validates a signed submission against the challenge identified by
// its nonce and returns the verified, lower-cased wallet address bound to
// the directory user the challenge was issued for. The challenge is
// consumed only after every check passes, and at most once.
func (s *Service) Verify(ctx context.Context, sub Submission) (Verification, error) {
	if sub.Nonce == "" {
		return Verification{}, ErrNotFound
	}

	ch, err := s.store.Find(ctx, sub.Nonce)
	if err != nil {
		return Verification{}, err
	}

	if s.now().UTC().After(ch.IssuedAt.Add(s.ttl)) {
		return Verification{}, ErrExpired
	}

	claimed := strings.ToLower(sub.Address)

	// Rebuild the message from trusted configuration so a client cannot
	// have signed an attacker-chosen payload; only the claimed address and
	// the nonce come from the submission.
	expected := Message{
		Domain:    s.domain,
		Address:   claimed,
		ChainID:   s.chainID,
		URI:       s.uri,
		Version:   s.version,
		Statement: s.statement,
		Type:      MessageType,
		Nonce:     ch.RequestID,
	}
	candidate := Message{
		Domain:    sub.Domain,
		Address:   sub.Address,
		ChainID:   sub.ChainID,
		URI:       sub.URI,
		Version:   sub.Version,
		Statement: sub.Statement,
		Type:      sub.Type,
		Nonce:     sub.Nonce,
	}

	expectedBytes, err := expected.Canonical()
	if err != nil {
		return Verification{}, fmt.Errorf("encode expected message: %w", err)
	}
	candidateBytes, err := candidate.Canonical()
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrMessageMismatch, err)
	}
	if !bytes.Equal(expectedBytes, candidateBytes) {
		s.logger.Warn("sign-in message mismatch", "request_id", sub.Nonce)
		return Verification{}, ErrMessageMismatch
	}

	recovered, err := RecoverAddress(expectedBytes, sub.Signature)
	if err != nil {
		return Verification{}, err
	}
	if recovered != claimed {
		s.logger.Warn("sign-in signer mismatch", "request_id", sub.Nonce, "claimed", claimed)
		return Verification{}, ErrInvalidSignature
	}

	if _, err := s.store.Consume(ctx, ch.RequestID); err != nil {
		return Verification{}, err
	}

	return Verification{
		DirectoryUserID: ch.DirectoryUserID,
		WalletAddress:   recovered,
	}, nil
}
