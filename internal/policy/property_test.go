package policy

import (
	"strings"
	"testing"

	"github.com/govgate/govgate/internal/contracts"
	"github.com/govgate/govgate/internal/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	return parameters
}

// Property: enforcementMode != "enforce" => FAIL, reason names the mode
func TestPropertyNonEnforceModeFails(t *testing.T) {
	engine := newTestEngine(t)
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("non-enforce modes fail and are named", prop.ForAll(
		func(mode string) bool {
			p := validPolicy()
			p["enforcementMode"] = mode
			root := writeDocs(t, p, validContracts())

			d := engine.Evaluate(contracts.NewStore(root), "repo-writer", "comment")
			return d.Result == models.ResultFail &&
				d.Gate == models.GateName &&
				strings.Contains(d.Reason, mode)
		},
		gen.AnyString().SuchThat(func(s string) bool { return s != models.EnforceMode }),
	))

	properties.TestingRun(t)
}

// Property: unknown adapter => FAIL with "not found" and "fail-closed"
func TestPropertyUnknownAdapterFails(t *testing.T) {
	engine := newTestEngine(t)
	root := writeDocs(t, validPolicy(), validContracts())
	store := contracts.NewStore(root)
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("absent adapters are denied", prop.ForAll(
		func(name string) bool {
			d := engine.Evaluate(store, name, "comment")
			return d.Result == models.ResultFail &&
				strings.Contains(d.Reason, "not found") &&
				strings.Contains(d.Reason, "fail-closed")
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "repo-writer" }),
	))

	properties.TestingRun(t)
}

// Property: action outside allowedActions => FAIL naming the action
func TestPropertyDisallowedActionFails(t *testing.T) {
	engine := newTestEngine(t)
	root := writeDocs(t, validPolicy(), validContracts())
	store := contracts.NewStore(root)
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("actions outside allowedActions are denied", prop.ForAll(
		func(action string) bool {
			d := engine.Evaluate(store, "repo-writer", action)
			return d.Result == models.ResultFail &&
				strings.Contains(d.Reason, "not in allowedActions") &&
				strings.Contains(d.Reason, action)
		},
		gen.AnyString().SuchThat(func(s string) bool { return s != "open-pull-request" && s != "comment" }),
	))

	properties.TestingRun(t)
}

// Property: empty constraints => FAIL regardless of action
func TestPropertyEmptyConstraintsFail(t *testing.T) {
	engine := newTestEngine(t)
	c := validContracts()
	c["adapters"].([]any)[0].(map[string]any)["constraints"] = []any{}
	root := writeDocs(t, validPolicy(), c)
	store := contracts.NewStore(root)
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("unconstrained adapters never pass", prop.ForAll(
		func(action string) bool {
			d := engine.Evaluate(store, "repo-writer", action)
			return d.Result == models.ResultFail && strings.Contains(d.Reason, "no constraints")
		},
		gen.OneGenOf(gen.Const("comment"), gen.Const("open-pull-request"), gen.AlphaString()),
	))

	properties.TestingRun(t)
}
