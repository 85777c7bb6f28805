package tier

import (
	"fmt"

	"github.com/holdergate/holdergate/internal/config"
)

// Definition is one ordered qualification tier. Threshold is an exclusive
// lower bound on the measurement; tiers are cumulative, so a measurement
// clearing a higher tier's threshold clears every lower one as well.
// Capacity caps concurrent holders; zero or negative means unlimited.
type Definition struct {
	Name      string
	RoleID    string
	Threshold int64
	Capacity  int
}

// FromSpecs converts rule-file tier specs into definitions and enforces
// strictly increasing thresholds, which is what makes qualification
// monotonic in the measurement.
func FromSpecs(specs []config.TierSpec) ([]Definition, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one tier is required")
	}

	defs := make([]Definition, 0, len(specs))
	for i, s := range specs {
		if s.Threshold < 0 {
			return nil, fmt.Errorf("tier %q: threshold must be non-negative", s.Name)
		}
		if i > 0 && s.Threshold <= specs[i-1].Threshold {
			return nil, fmt.Errorf("tier %q: threshold %d is not above tier %q's %d",
				s.Name, s.Threshold, specs[i-1].Name, specs[i-1].Threshold)
		}
		defs = append(defs, Definition{
			Name:      s.Name,
			RoleID:    s.RoleID,
			Threshold: s.Threshold,
			Capacity:  s.Capacity,
		})
	}
	return defs, nil
}

// Evaluate maps a measurement to per-tier qualification. Pure: no side
// effects, safe for concurrent use.
func Evaluate(measurement int64, defs []Definition) map[string]bool {
	qualified := make(map[string]bool, len(defs))
	for _, d := range defs {
		qualified[d.Name] = measurement > d.Threshold
	}
	return qualified
}
