package models

// CapabilityState implementation maturity
type CapabilityState string

const (
	StateSpecOnly    CapabilityState = "spec-only"
	StateScaffold    CapabilityState = "scaffold"
	StateOperational CapabilityState = "operational"
)

// CapabilityStates in report order
var CapabilityStates = []CapabilityState{StateSpecOnly, StateScaffold, StateOperational}

// Valid checks enum membership
func (s CapabilityState) Valid() bool {
	for _, known := range CapabilityStates {
		if s == known {
			return true
		}
	}
	return false
}

// Capability tracked by the scoreboard
type Capability struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	State       CapabilityState `json:"state"`
	Evidence    []string        `json:"evidence,omitempty"`
}

// Scoreboard document
type Scoreboard struct {
	Version      int          `json:"version"`
	Capabilities []Capability `json:"capabilities"`
}

// StateCounts has one slot per state so no key is ever omitted
type StateCounts struct {
	SpecOnly    int `json:"spec-only"`
	Scaffold    int `json:"scaffold"`
	Operational int `json:"operational"`
}

// Get count for a state
func (c StateCounts) Get(s CapabilityState) int {
	switch s {
	case StateSpecOnly:
		return c.SpecOnly
	case StateScaffold:
		return c.Scaffold
	case StateOperational:
		return c.Operational
	default:
		return 0
	}
}

// Total across states
func (c StateCounts) Total() int {
	return c.SpecOnly + c.Scaffold + c.Operational
}

// ParityReport deterministic scoreboard snapshot
type ParityReport struct {
	GeneratedAt       string       `json:"generatedAt"`
	ScoreboardVersion int          `json:"scoreboardVersion"`
	Summary           string       `json:"summary"`
	Counts            StateCounts  `json:"counts"`
	TotalCapabilities int          `json:"totalCapabilities"`
	Capabilities      []Capability `json:"capabilities"`
}
