// Package policy decides whether an adapter may perform an action under the
// loaded command policy and adapter contracts. Evaluation is fail-closed:
// every problem, including unreadable documents, ends in a FAIL decision.
package policy

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/govgate/govgate/internal/contracts"
	"github.com/govgate/govgate/internal/models"
)

// timestampLayout ISO-8601 with millisecond precision
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Gate names, in evaluation order
const (
	GateLoadCommandPolicy    = "load-command-policy"
	GateEnforcementMode      = "enforcement-mode"
	GateLoadAdapterContracts = "load-adapter-contracts"
	GateAdaptersArray        = "adapters-array"
	GateAdapterPresent       = "adapter-present"
	GateAdapterConstraints   = "adapter-constraints"
	GateAllowedActionsArray  = "allowed-actions-array"
	GateActionAllowed        = "action-allowed"
)

// Engine is the adapter gate. CEL programs are compiled once; evaluation
// keeps no state, so an Engine can be shared between goroutines.
type Engine struct {
	env   *cel.Env
	gates []gate
	now   func() time.Time
}

type gate struct {
	name     string
	evidence func(*contracts.Store) string
	run      func(*evaluation) (reason string, ok bool)
}

// evaluation carries one request through the gates
type evaluation struct {
	store     *contracts.Store
	adapter   string
	action    string
	policy    contracts.Document
	contracts contracts.Document
	contract  map[string]any
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the decision timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(opts ...Option) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	policyEvidence := (*contracts.Store).CommandPolicyEvidence
	contractsEvidence := (*contracts.Store).AdapterContractsEvidence

	celGates := []struct {
		name     string
		evidence func(*contracts.Store) string
		expr     string
		deny     func(*evaluation) string
	}{
		{GateEnforcementMode, policyEvidence,
			`has(input.policy.enforcementMode) && input.policy.enforcementMode == "enforce"`, denyEnforcementMode},
		{GateAdaptersArray, contractsEvidence,
			`has(input.contracts.adapters) && type(input.contracts.adapters) == list`, denyAdaptersArray},
		{GateAdapterConstraints, contractsEvidence,
			`has(input.contract.constraints) && type(input.contract.constraints) == list && size(input.contract.constraints) > 0`, denyConstraints},
		{GateAllowedActionsArray, policyEvidence,
			`has(input.policy.allowedActions) && type(input.policy.allowedActions) == list`, denyAllowedActionsArray},
		{GateActionAllowed, policyEvidence,
			`input.action in input.policy.allowedActions`, denyAction},
	}

	compiled := make(map[string]gate, len(celGates))
	for _, g := range celGates {
		cg, err := e.compileGate(g.name, g.evidence, g.expr, g.deny)
		if err != nil {
			return nil, err
		}
		compiled[g.name] = cg
	}

	e.gates = []gate{
		{name: GateLoadCommandPolicy, evidence: policyEvidence, run: loadCommandPolicy},
		compiled[GateEnforcementMode],
		{name: GateLoadAdapterContracts, evidence: contractsEvidence, run: loadAdapterContracts},
		compiled[GateAdaptersArray],
		{name: GateAdapterPresent, evidence: contractsEvidence, run: locateAdapter},
		compiled[GateAdapterConstraints],
		compiled[GateAllowedActionsArray],
		compiled[GateActionAllowed],
	}
	return e, nil
}

// Evaluate runs the gates for one adapter/action pair
func (e *Engine) Evaluate(store *contracts.Store, adapterName, action string) models.PolicyDecision {
	decision, _ := e.EvaluateWithGate(store, adapterName, action)
	return decision
}

// EvaluateWithGate also returns the gate that decided the outcome ("" on PASS)
func (e *Engine) EvaluateWithGate(store *contracts.Store, adapterName, action string) (models.PolicyDecision, string) {
	ev := &evaluation{store: store, adapter: adapterName, action: action}

	for _, g := range e.gates {
		reason, ok := g.run(ev)
		if !ok {
			return e.decide(ev, models.ResultFail, reason, g.evidence(store)), g.name
		}
	}

	reason := fmt.Sprintf("adapter '%s' may perform '%s' (enforcementMode=%s, policyVersion=%s)",
		adapterName, action, ev.enforcementMode(), ev.policyVersion())
	evidence := strings.Join([]string{store.CommandPolicyEvidence(), store.AdapterContractsEvidence()}, ", ")
	return e.decide(ev, models.ResultPass, reason, evidence), ""
}

// Evaluate is the one-shot form: it never fails, an engine that cannot be
// built still yields a FAIL decision.
func Evaluate(root, adapterName, action string) models.PolicyDecision {
	store := contracts.NewStore(root)
	engine, err := NewEngine()
	if err != nil {
		return models.PolicyDecision{
			Gate:            models.GateName,
			Result:          models.ResultFail,
			Adapter:         adapterName,
			Action:          action,
			Reason:          fmt.Sprintf("policy engine unavailable (fail-closed): %v", err),
			Evidence:        store.CommandPolicyEvidence(),
			PolicyVersion:   models.Unknown,
			EnforcementMode: models.Unknown,
			Timestamp:       time.Now().UTC().Format(timestampLayout),
		}
	}
	return engine.Evaluate(store, adapterName, action)
}

func (e *Engine) decide(ev *evaluation, result models.DecisionResult, reason, evidence string) models.PolicyDecision {
	return models.PolicyDecision{
		Gate:            models.GateName,
		Result:          result,
		Adapter:         ev.adapter,
		Action:          ev.action,
		Reason:          reason,
		Evidence:        evidence,
		PolicyVersion:   ev.policyVersion(),
		EnforcementMode: ev.enforcementMode(),
		Timestamp:       e.now().UTC().Format(timestampLayout),
	}
}

// compileGate turns a CEL predicate into a gate. Compile problems surface
// at construction; evaluation errors deny.
func (e *Engine) compileGate(name string, evidence func(*contracts.Store) string, expr string, deny func(*evaluation) string) (gate, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return gate{}, fmt.Errorf("gate %q: CEL compile error: %w", name, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return gate{}, fmt.Errorf("gate %q: CEL program error: %w", name, err)
	}

	return gate{
		name:     name,
		evidence: evidence,
		run: func(ev *evaluation) (string, bool) {
			out, _, err := prg.Eval(map[string]any{"input": ev.input()})
			if err != nil {
				return fmt.Sprintf("%s [gate %s: %v]", deny(ev), name, err), false
			}
			passed, ok := out.Value().(bool)
			if !ok {
				return fmt.Sprintf("%s [gate %s returned %T]", deny(ev), name, out.Value()), false
			}
			if !passed {
				return deny(ev), false
			}
			return "", true
		},
	}, nil
}

func (ev *evaluation) input() map[string]any {
	in := map[string]any{
		"adapter": ev.adapter,
		"action":  ev.action,
	}
	if ev.policy != nil {
		in["policy"] = map[string]any(ev.policy)
	}
	if ev.contracts != nil {
		in["contracts"] = map[string]any(ev.contracts)
	}
	if ev.contract != nil {
		in["contract"] = ev.contract
	}
	return in
}

func (ev *evaluation) policyVersion() string {
	if ev.policy == nil {
		return models.Unknown
	}
	return describe(ev.policy, "policyVersion")
}

func (ev *evaluation) enforcementMode() string {
	if ev.policy == nil {
		return models.Unknown
	}
	return describe(ev.policy, "enforcementMode")
}

// Go gates

func loadCommandPolicy(ev *evaluation) (string, bool) {
	doc, err := ev.store.LoadCommandPolicy()
	if err != nil {
		return fmt.Sprintf("command policy unreadable (fail-closed): %v", err), false
	}
	ev.policy = doc
	return "", true
}

func loadAdapterContracts(ev *evaluation) (string, bool) {
	doc, err := ev.store.LoadAdapterContracts()
	if err != nil {
		return fmt.Sprintf("adapter contracts unreadable (fail-closed): %v", err), false
	}
	ev.contracts = doc
	return "", true
}

// locateAdapter picks the first entry whose name matches exactly
func locateAdapter(ev *evaluation) (string, bool) {
	adapters, _ := ev.contracts["adapters"].([]any)
	for _, a := range adapters {
		obj, ok := a.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := obj["name"].(string); ok && name == ev.adapter {
			ev.contract = obj
			return "", true
		}
	}
	return fmt.Sprintf("adapter '%s' not found in %s (fail-closed)", ev.adapter, ev.store.AdapterContractsEvidence()), false
}

// deny reasons

func denyEnforcementMode(ev *evaluation) string {
	return fmt.Sprintf("enforcementMode is '%s'; only 'enforce' permits adapter actions (fail-closed)", ev.enforcementMode())
}

func denyAdaptersArray(ev *evaluation) string {
	return fmt.Sprintf("adapter contracts field 'adapters' must be an array, got %s (fail-closed)", kindOf(ev.contracts, "adapters"))
}

func denyConstraints(ev *evaluation) string {
	return fmt.Sprintf("adapter '%s' has no constraints (fail-closed)", ev.adapter)
}

func denyAllowedActionsArray(ev *evaluation) string {
	return fmt.Sprintf("command policy field 'allowedActions' must be an array, got %s (fail-closed)", kindOf(ev.policy, "allowedActions"))
}

func denyAction(ev *evaluation) string {
	allowed, _ := ev.policy["allowedActions"].([]any)
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, literal(a))
	}
	return fmt.Sprintf("action '%s' not in allowedActions [%s] (fail-closed)", ev.action, strings.Join(names, ", "))
}

// describe renders a document field for the decision record
func describe(doc contracts.Document, key string) string {
	v, ok := doc[key]
	if !ok || v == nil {
		return models.Unknown
	}
	s := literal(v)
	if s == "" {
		return models.Unknown
	}
	return s
}

func literal(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func kindOf(doc contracts.Document, key string) string {
	v, ok := doc[key]
	if !ok {
		return "nothing"
	}
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
