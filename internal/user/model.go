package user

import "time"

// User binds a directory (Discord) account to an on-chain wallet. The
// wallet address is empty until the holder completes a signed verification,
// and is stored lower-cased; it is the only key used to query the ledger.
type User struct {
	DirectoryID   string
	WalletAddress string
	LinkedAt      time.Time
	CreatedAt     time.Time
}

// Linked reports whether the user has a verified wallet on file.
func (u User) Linked() bool {
	return u.WalletAddress != ""
}
