// Package receipt writes one audit record per govgate invocation.
package receipt

import "github.com/govgate/govgate/internal/models"

const ReceiptSchemaVersion = "1.0"

type Receipt struct {
	SchemaVersion string             `json:"schema_version"`
	OpID          string             `json:"op_id"`
	TsStart       string             `json:"ts_start"`
	TsEnd         string             `json:"ts_end"`
	Command       string             `json:"command"`
	Args          []string           `json:"args"`
	ArgsRedacted  bool               `json:"args_redacted,omitempty"`
	Result        Result             `json:"result"`
	Build         *BuildRef          `json:"build,omitempty"`
	Decision      *DecisionSummary   `json:"decision,omitempty"`
	Scoreboard    *ScoreboardSummary `json:"scoreboard,omitempty"`
	Lint          *LintSummary       `json:"lint,omitempty"`
}

type Result struct {
	Status string `json:"status"` // success|fail
	Error  string `json:"error,omitempty"`
}

type BuildRef struct {
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
}

// DecisionSummary pins a gate decision. SHA256 is taken over the RFC 8785
// canonical form of the decision record.
type DecisionSummary struct {
	Adapter         string `json:"adapter"`
	Action          string `json:"action"`
	Result          string `json:"result"`
	DecidingGate    string `json:"deciding_gate,omitempty"`
	PolicyVersion   string `json:"policy_version"`
	EnforcementMode string `json:"enforcement_mode"`
	SHA256          string `json:"sha256,omitempty"`
}

type ScoreboardSummary struct {
	Path               string             `json:"path"`
	SHA256             string             `json:"sha256,omitempty"`
	Version            int                `json:"version"`
	Counts             models.StateCounts `json:"counts"`
	BaseRef            string             `json:"base_ref,omitempty"`
	AddedSpecArtifacts []string           `json:"added_spec_artifacts,omitempty"`
	ReportFile         string             `json:"report_file,omitempty"`
	ReportDrift        []string           `json:"report_drift,omitempty"`
}

type LintSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}
