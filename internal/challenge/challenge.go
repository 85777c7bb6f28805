package challenge

import (
	"errors"
	"time"
)

// Identity-layer failures. All of these surface to the HTTP caller as a
// 422-class rejection with a specific message.
var (
	ErrNotFound         = errors.New("challenge not found")
	ErrExpired          = errors.New("challenge expired")
	ErrAlreadyUsed      = errors.New("challenge already used")
	ErrMessageMismatch  = errors.New("signed message does not match the expected message")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Challenge is a single-use, time-bounded nonce binding one sign-in
// attempt to the directory user it was issued for. The request id doubles
// as the nonce field of the signed message.
type Challenge struct {
	RequestID       string    `json:"request_id"`
	DirectoryUserID string    `json:"directory_user_id"`
	IssuedAt        time.Time `json:"issued_at"`
}

// Verification is the product of a successful challenge/response round: a
// wallet address cryptographically bound to the directory user the
// challenge was issued for.
type Verification struct {
	DirectoryUserID string
	WalletAddress   string
}
