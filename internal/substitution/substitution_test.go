package substitution

import (
	"testing"

	"github.com/tourloop/planner/config"
)

func TestMaxReferenceDistance_UsesModeRadius(t *testing.T) {
	got := maxReferenceDistance(config.ModeConfig{RadiusM: 4000})
	if got != 4000 {
		t.Errorf("maxReferenceDistance = %v, want 4000", got)
	}
}

func TestMaxReferenceDistance_FallsBackWhenRadiusUnset(t *testing.T) {
	got := maxReferenceDistance(config.ModeConfig{})
	if got != 2000 {
		t.Errorf("maxReferenceDistance = %v, want 2000 fallback", got)
	}
}
