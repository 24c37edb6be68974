package scoreboard

import (
	"strings"

	"github.com/govgate/govgate/internal/models"
)

// Validate stops at the first problem. Duplicate ids are reported on the
// second occurrence.
func Validate(sb *models.Scoreboard) error {
	if sb == nil || len(sb.Capabilities) == 0 {
		return invalid("Scoreboard must contain a non-empty capabilities array")
	}

	seen := make(map[string]bool, len(sb.Capabilities))
	for i, c := range sb.Capabilities {
		if strings.TrimSpace(c.ID) == "" {
			return invalid("Capability at index %d must have a non-empty id", i)
		}
		if strings.TrimSpace(c.Description) == "" {
			return invalid("Capability %q must have a non-empty description", c.ID)
		}
		if seen[c.ID] {
			return invalid("Duplicate capability id: %s", c.ID)
		}
		seen[c.ID] = true
		if !c.State.Valid() {
			return invalid("Capability %q has invalid state %q (expected one of %s)", c.ID, c.State, stateList())
		}
	}
	return nil
}

func stateList() string {
	names := make([]string, len(models.CapabilityStates))
	for i, s := range models.CapabilityStates {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
