package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const memberPageSize = 1000

// DiscordDirectory implements Directory against a Discord guild.
type DiscordDirectory struct {
	session *discordgo.Session
	guildID string
	timeout time.Duration
}

// NewDiscordDirectory builds a Discord-backed directory for one guild.
func NewDiscordDirectory(session *discordgo.Session, guildID string, timeout time.Duration) (*DiscordDirectory, error) {
	if guildID == "" {
		return nil, fmt.Errorf("guild id is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("directory timeout must be positive")
	}
	return &DiscordDirectory{session: session, guildID: guildID, timeout: timeout}, nil
}

// FetchRole resolves a role id against the guild's role list. Discord has
// no single-role lookup, so this lists and filters.
func (d *DiscordDirectory) FetchRole(ctx context.Context, roleID string) (Role, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	roles, err := d.session.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return Role{}, fmt.Errorf("fetch guild roles: %w", mapRESTError(err))
	}
	for _, r := range roles {
		if r.ID == roleID {
			return Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return Role{}, fmt.Errorf("role %s: %w", roleID, ErrUnknownRole)
}

// MemberRoles returns the role-id set held by the guild member.
func (d *DiscordDirectory) MemberRoles(ctx context.Context, userID string) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	member, err := d.session.GuildMember(d.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch member %s: %w", userID, mapRESTError(err))
	}

	roles := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		roles[id] = true
	}
	return roles, nil
}

// AddRole grants the role to the member.
func (d *DiscordDirectory) AddRole(ctx context.Context, userID, roleID string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.session.GuildMemberRoleAdd(d.guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add role %s to %s: %w", roleID, userID, mapRESTError(err))
	}
	return nil
}

// RemoveRole revokes the role from the member.
func (d *DiscordDirectory) RemoveRole(ctx context.Context, userID, roleID string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.session.GuildMemberRoleRemove(d.guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove role %s from %s: %w", roleID, userID, mapRESTError(err))
	}
	return nil
}

// RoleMemberCount counts members holding the role by paging through the
// guild member list. Discord offers no direct count endpoint; callers
// should only pay this cost for tiers with a finite capacity.
func (d *DiscordDirectory) RoleMemberCount(ctx context.Context, roleID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	count := 0
	after := ""
	for {
		members, err := d.session.GuildMembers(d.guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return 0, fmt.Errorf("list members: %w", mapRESTError(err))
		}
		for _, m := range members {
			for _, id := range m.Roles {
				if id == roleID {
					count++
					break
				}
			}
		}
		if len(members) < memberPageSize {
			return count, nil
		}
		after = members[len(members)-1].User.ID
	}
}

func mapRESTError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownRole:
			return fmt.Errorf("%w: %s", ErrUnknownRole, restErr.Message.Message)
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%w: %s", ErrUnknownMember, restErr.Message.Message)
		}
	}
	return err
}
