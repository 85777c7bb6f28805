package tier

import (
	"testing"

	"github.com/holdergate/holdergate/internal/config"
)

func testDefs(t *testing.T) []Definition {
	t.Helper()
	defs, err := FromSpecs([]config.TierSpec{
		{Name: "bronze", RoleID: "r1", Threshold: 0},
		{Name: "silver", RoleID: "r2", Threshold: 10},
		{Name: "gold", RoleID: "r3", Threshold: 25},
	})
	if err != nil {
		t.Fatalf("build tiers: %v", err)
	}
	return defs
}

func TestEvaluateMonotonic(t *testing.T) {
	defs := testDefs(t)

	cases := []struct {
		measurement int64
		want        map[string]bool
	}{
		{0, map[string]bool{"bronze": false, "silver": false, "gold": false}},
		{5, map[string]bool{"bronze": true, "silver": false, "gold": false}},
		{15, map[string]bool{"bronze": true, "silver": true, "gold": false}},
		{30, map[string]bool{"bronze": true, "silver": true, "gold": true}},
	}

	for _, tc := range cases {
		got := Evaluate(tc.measurement, defs)
		for name, want := range tc.want {
			if got[name] != want {
				t.Errorf("measurement %d tier %s: got %v, want %v", tc.measurement, name, got[name], want)
			}
		}
	}
}

func TestEvaluateHigherTierImpliesLower(t *testing.T) {
	defs := testDefs(t)

	for m := int64(0); m <= 40; m++ {
		got := Evaluate(m, defs)
		for i := 1; i < len(defs); i++ {
			if got[defs[i].Name] && !got[defs[i-1].Name] {
				t.Fatalf("measurement %d: %s qualified without %s", m, defs[i].Name, defs[i-1].Name)
			}
		}
	}
}

func TestFromSpecsRejectsNonIncreasingThresholds(t *testing.T) {
	_, err := FromSpecs([]config.TierSpec{
		{Name: "a", RoleID: "r1", Threshold: 10},
		{Name: "b", RoleID: "r2", Threshold: 10},
	})
	if err == nil {
		t.Fatal("expected error for equal thresholds")
	}

	_, err = FromSpecs([]config.TierSpec{
		{Name: "a", RoleID: "r1", Threshold: 10},
		{Name: "b", RoleID: "r2", Threshold: 5},
	})
	if err == nil {
		t.Fatal("expected error for decreasing thresholds")
	}
}

func TestFromSpecsRejectsNegativeThreshold(t *testing.T) {
	if _, err := FromSpecs([]config.TierSpec{{Name: "a", RoleID: "r1", Threshold: -1}}); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}
