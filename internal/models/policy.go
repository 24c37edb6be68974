package models

// GateName tags every decision emitted by the adapter gate
const GateName = "policy-gated-adapter"

// Unknown placeholder for unreadable policy fields
const Unknown = "unknown"

// EnforceMode is the only enforcementMode that lets an action pass
const EnforceMode = "enforce"

// DecisionResult PASS or FAIL
type DecisionResult string

const (
	ResultPass DecisionResult = "PASS"
	ResultFail DecisionResult = "FAIL"
)

// PolicyDecision is the audit record of one gate evaluation.
// Every field is populated for PASS and FAIL alike.
type PolicyDecision struct {
	Gate            string         `json:"gate"`
	Result          DecisionResult `json:"result"`
	Adapter         string         `json:"adapter"`
	Action          string         `json:"action"`
	Reason          string         `json:"reason"`
	Evidence        string         `json:"evidence"`
	PolicyVersion   string         `json:"policyVersion"`
	EnforcementMode string         `json:"enforcementMode"`
	Timestamp       string         `json:"timestamp"`
}

// Passed shorthand
func (d PolicyDecision) Passed() bool {
	return d.Result == ResultPass
}

// CommandPolicy typed view, used for inventories.
// The gate itself works on the raw document.
type CommandPolicy struct {
	SchemaVersion   any      `json:"schemaVersion"`
	PolicyVersion   string   `json:"policyVersion"`
	EnforcementMode string   `json:"enforcementMode"`
	AllowedActions  []string `json:"allowedActions"`
	AllowedCommands []string `json:"allowedCommands,omitempty"`
	Constraints     []string `json:"constraints"`
}

// AdapterContracts document
type AdapterContracts struct {
	SchemaVersion    any               `json:"schemaVersion"`
	ContractsVersion string            `json:"contractsVersion"`
	Adapters         []AdapterContract `json:"adapters"`
}

// AdapterContract single capability
type AdapterContract struct {
	Name        string   `json:"name"`
	Capability  string   `json:"capability"`
	TrustLevels []string `json:"trustLevels"`
	Constraints []string `json:"constraints"`
}
