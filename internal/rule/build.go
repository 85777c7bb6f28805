package rule

import (
	"fmt"
	"log/slog"

	"github.com/holdergate/holdergate/internal/config"
	"github.com/holdergate/holdergate/internal/directory"
	"github.com/holdergate/holdergate/internal/ledger"
	"github.com/holdergate/holdergate/internal/notification"
	"github.com/holdergate/holdergate/internal/tier"
)

// Deps are the collaborators handed to every constructed rule. NewReader
// is a factory because each rule watches its own asset contract.
type Deps struct {
	NewReader  func(contractAddress string) (ledger.Reader, error)
	Directory  directory.Directory
	Notifier   notification.Notifier
	Logger     *slog.Logger
	FetchLimit int
}

// BuildRegistry constructs the configured rules. Unknown rule types are a
// startup error; adding a rule kind means adding a case here and nowhere
// else.
func BuildRegistry(rules config.Rules, deps Deps) (*Registry, error) {
	registry := NewRegistry()

	for _, spec := range rules.Rules {
		switch spec.Type {
		case KindHoldings:
			defs, err := tier.FromSpecs(spec.Tiers)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
			}
			if spec.Contract == "" {
				return nil, fmt.Errorf("rule %q: contract address is required", spec.Name)
			}
			reader, err := deps.NewReader(spec.Contract)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
			}
			reconciler := NewReconciler(deps.Directory, deps.Notifier, deps.Logger, deps.FetchLimit)
			if err := registry.Register(NewHoldingsRule(spec.Name, reader, reconciler, defs, deps.Logger)); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("rule %q: unknown rule type %q", spec.Name, spec.Type)
		}
	}

	return registry, nil
}
