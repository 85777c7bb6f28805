package directory

import (
	"context"
	"errors"
)

var (
	// ErrUnknownRole indicates a role id that does not exist in the guild.
	// This is a configuration error on the caller's side, not a transient
	// failure, and must not be retried.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownMember indicates the user is not (or no longer) a member
	// of the guild.
	ErrUnknownMember = errors.New("unknown member")
)

// Role is a named membership role in the community directory.
type Role struct {
	ID   string
	Name string
}

// Directory is the narrow contract this engine needs from the community
// membership service. All calls are network I/O and honor the context
// deadline; any error other than the sentinels above is transient.
type Directory interface {
	FetchRole(ctx context.Context, roleID string) (Role, error)
	// MemberRoles returns the set of role ids currently held by the user.
	MemberRoles(ctx context.Context, userID string) (map[string]bool, error)
	AddRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
	// RoleMemberCount reports how many members currently hold the role,
	// the input to the per-tier capacity ceiling.
	RoleMemberCount(ctx context.Context, roleID string) (int, error)
}
