package rule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holdergate/holdergate/internal/ledger"
	"github.com/holdergate/holdergate/internal/tier"
	"github.com/holdergate/holdergate/internal/user"
)

// KindHoldings is the registry type name of the token-holdings rule.
const KindHoldings = "holdings"

// HoldingsRule qualifies users by the token balance of their linked wallet
// and reconciles the configured tier roles against it.
type HoldingsRule struct {
	name       string
	reader     ledger.Reader
	reconciler *Reconciler
	tiers      []tier.Definition
	logger     *slog.Logger
}

// NewHoldingsRule builds the holdings rule. The collaborators come in
// explicitly so the rule is testable with fakes.
func NewHoldingsRule(name string, reader ledger.Reader, reconciler *Reconciler, tiers []tier.Definition, logger *slog.Logger) *HoldingsRule {
	return &HoldingsRule{
		name:       name,
		reader:     reader,
		reconciler: reconciler,
		tiers:      tiers,
		logger:     logger,
	}
}

// Name returns the configured rule name.
func (r *HoldingsRule) Name() string {
	return r.name
}

// Tiers returns the rule's tier definitions in threshold order.
func (r *HoldingsRule) Tiers() []tier.Definition {
	return r.tiers
}

// Check measures the user's balance. An unlinked wallet short-circuits to
// zero without touching the ledger; a failed ledger query propagates as a
// recoverable per-user error and is never reported as a zero balance.
func (r *HoldingsRule) Check(ctx context.Context, u user.User) (Result, error) {
	if !u.Linked() {
		r.logger.Info("wallet not linked, skipping ledger query", "rule", r.name, "user", u.DirectoryID)
		return Result{Measurement: 0}, nil
	}

	balance, err := r.reader.BalanceOf(ctx, u.WalletAddress)
	if err != nil {
		return Result{}, fmt.Errorf("check %s for %s: %w", r.name, u.DirectoryID, err)
	}

	r.logger.Info("balance measured", "rule", r.name, "user", u.DirectoryID, "wallet", u.WalletAddress, "balance", balance)
	return Result{Measurement: balance}, nil
}

// Execute evaluates the tiers against the measurement and reconciles the
// user's directory roles to match.
func (r *HoldingsRule) Execute(ctx context.Context, u user.User, result Result) ([]Outcome, error) {
	qualified := tier.Evaluate(result.Measurement, r.tiers)
	return r.reconciler.Reconcile(ctx, u, r.tiers, qualified, result.Measurement)
}
