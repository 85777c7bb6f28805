package rule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/holdergate/holdergate/internal/directory"
	"github.com/holdergate/holdergate/internal/notification"
	"github.com/holdergate/holdergate/internal/tier"
	"github.com/holdergate/holdergate/internal/user"
)

const defaultFetchLimit = 4

// Reconciler applies the minimal role additions and removals needed to
// make a user's directory roles match their tier qualification. Each tier
// is handled independently: one tier's failure is logged and flagged, and
// the remaining tiers still run.
type Reconciler struct {
	dir        directory.Directory
	notifier   notification.Notifier
	logger     *slog.Logger
	fetchLimit int
}

// NewReconciler builds a reconciler. fetchLimit bounds the concurrent
// role lookups; values below one fall back to the default.
func NewReconciler(dir directory.Directory, notifier notification.Notifier, logger *slog.Logger, fetchLimit int) *Reconciler {
	if fetchLimit < 1 {
		fetchLimit = defaultFetchLimit
	}
	return &Reconciler{dir: dir, notifier: notifier, logger: logger, fetchLimit: fetchLimit}
}

// Reconcile runs the per-tier add/remove decisions for one user. The
// returned slice always has one outcome per tier, errored tiers included.
// The only whole-run failure is being unable to read the user's current
// role set, without which idempotent mutation is impossible.
func (r *Reconciler) Reconcile(ctx context.Context, u user.User, defs []tier.Definition, qualified map[string]bool, measurement int64) ([]Outcome, error) {
	held, err := r.dir.MemberRoles(ctx, u.DirectoryID)
	if err != nil {
		return nil, fmt.Errorf("read roles for %s: %w", u.DirectoryID, err)
	}

	roles, fetchErrs := r.fetchRoles(ctx, defs)

	outcomes := make([]Outcome, 0, len(defs))
	for i, def := range defs {
		outcome := Outcome{
			TierName:    def.Name,
			RoleID:      def.RoleID,
			Qualified:   qualified[def.Name],
			RoleAvail:   true,
			Measurement: measurement,
		}

		if fetchErrs[i] != nil {
			// A misconfigured or unreachable role must not halt the
			// remaining tiers.
			if errors.Is(fetchErrs[i], directory.ErrUnknownRole) {
				r.logger.Error("tier role is not configured correctly",
					"tier", def.Name, "role_id", def.RoleID, "error", fetchErrs[i])
			} else {
				r.logger.Error("tier role lookup failed",
					"tier", def.Name, "role_id", def.RoleID, "error", fetchErrs[i])
			}
			outcome.Qualified = false
			outcome.Err = fetchErrs[i]
			outcomes = append(outcomes, outcome)
			continue
		}
		role := roles[i]

		if outcome.Qualified && def.Capacity > 0 {
			count, err := r.dir.RoleMemberCount(ctx, def.RoleID)
			if err != nil {
				r.logger.Error("tier capacity check failed", "tier", def.Name, "role", role.Name, "error", err)
				outcome.Err = err
				outcomes = append(outcomes, outcome)
				continue
			}
			outcome.RoleAvail = count < def.Capacity
		}

		if err := r.applyTier(ctx, u, def, role, held, &outcome); err != nil {
			r.logger.Error("tier reconciliation failed", "tier", def.Name, "role", role.Name, "user", u.DirectoryID, "error", err)
			outcome.Err = err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// fetchRoles resolves every tier's role concurrently with a bounded
// fan-out, keeping per-tier results and errors separate so isolation
// survives the concurrency.
func (r *Reconciler) fetchRoles(ctx context.Context, defs []tier.Definition) ([]directory.Role, []error) {
	roles := make([]directory.Role, len(defs))
	errs := make([]error, len(defs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fetchLimit)
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			roles[i], errs[i] = r.dir.FetchRole(ctx, def.RoleID)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; they record them per tier

	return roles, errs
}

// applyTier performs the idempotent add/remove for one tier. Removal is
// never subject to the capacity check.
func (r *Reconciler) applyTier(ctx context.Context, u user.User, def tier.Definition, role directory.Role, held map[string]bool, outcome *Outcome) error {
	switch {
	case outcome.Qualified && outcome.RoleAvail:
		if held[def.RoleID] {
			return nil
		}
		if err := r.dir.AddRole(ctx, u.DirectoryID, def.RoleID); err != nil {
			return err
		}
		r.logger.Info("assigning role", "role", role.Name, "user", u.DirectoryID)
		r.notify(ctx, notification.KindRoleGranted, u.DirectoryID, role.Name)

	case outcome.Qualified && !outcome.RoleAvail:
		r.logger.Warn("tier capacity exhausted, role not added",
			"tier", def.Name, "role", role.Name, "capacity", def.Capacity, "user", u.DirectoryID)

	default:
		if !held[def.RoleID] {
			return nil
		}
		if err := r.dir.RemoveRole(ctx, u.DirectoryID, def.RoleID); err != nil {
			return err
		}
		r.logger.Info("removing role", "role", role.Name, "user", u.DirectoryID)
		r.notify(ctx, notification.KindRoleRevoked, u.DirectoryID, role.Name)
	}
	return nil
}

func (r *Reconciler) notify(ctx context.Context, kind, userID, roleName string) {
	if r.notifier == nil {
		return
	}
	msg := notification.Message{Kind: kind, Destination: userID, Body: roleName}
	if err := r.notifier.Send(ctx, msg); err != nil {
		r.logger.Warn("notification failed", "kind", kind, "error", err)
	}
}
