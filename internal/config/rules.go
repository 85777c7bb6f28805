package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TierSpec is one qualification tier as declared in the rules file.
// Threshold is an exclusive lower bound on the measurement; Capacity is the
// maximum number of concurrent holders, with zero meaning unlimited.
type TierSpec struct {
	Name      string `yaml:"name"`
	RoleID    string `yaml:"role_id"`
	Threshold int64  `yaml:"threshold"`
	Capacity  int    `yaml:"capacity"`
}

// RuleSpec declares one qualification rule and the tiers it manages.
type RuleSpec struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type"`
	Contract string     `yaml:"contract"`
	Tiers    []TierSpec `yaml:"tiers"`
}

// Rules is the root of the rules configuration file.
type Rules struct {
	Rules []RuleSpec `yaml:"rules"`
}

// LoadRules parses the YAML rules file. Structural validation happens here;
// tier-threshold ordering is enforced by the tier package when the rule is
// constructed.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}

	if len(rules.Rules) == 0 {
		return Rules{}, fmt.Errorf("rules file %s declares no rules", path)
	}
	for _, r := range rules.Rules {
		if r.Name == "" {
			return Rules{}, fmt.Errorf("rule with empty name in %s", path)
		}
		if r.Type == "" {
			return Rules{}, fmt.Errorf("rule %q has no type", r.Name)
		}
		if len(r.Tiers) == 0 {
			return Rules{}, fmt.Errorf("rule %q declares no tiers", r.Name)
		}
		for _, t := range r.Tiers {
			if t.Name == "" || t.RoleID == "" {
				return Rules{}, fmt.Errorf("rule %q has a tier missing name or role_id", r.Name)
			}
		}
	}

	return rules, nil
}
