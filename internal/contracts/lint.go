package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	commandPolicySchemaURL    = "https://govgate.schemas.local/command-policy.schema.json"
	adapterContractsSchemaURL = "https://govgate.schemas.local/adapter-contracts.schema.json"
)

// SupportedSchemaVersions constrains schemaVersion of both documents
const SupportedSchemaVersions = "^1"

// Severity of a lint finding
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Finding from Lint
type Finding struct {
	Document string   `json:"document"`
	Location string   `json:"location"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// HasErrors true if any finding is an error
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Lint checks both documents against their schemas and versioning rules.
// It is stricter than the gate: it reports everything it finds.
func (s *Store) Lint() ([]Finding, error) {
	compiled, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	var findings []Finding
	findings = append(findings, s.lintDocument(s.CommandPolicyPath, compiled[commandPolicySchemaURL], lintCommandPolicy)...)
	findings = append(findings, s.lintDocument(s.AdapterContractsPath, compiled[adapterContractsSchemaURL], lintAdapterContracts)...)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Document != findings[j].Document {
			return findings[i].Document < findings[j].Document
		}
		return findings[i].Location < findings[j].Location
	})
	return findings, nil
}

func (s *Store) lintDocument(rel string, schema *jsonschema.Schema, extra func(string, Document) []Finding) []Finding {
	name := filepath.ToSlash(rel)
	data, err := s.ReadRaw(rel)
	if err != nil {
		return []Finding{{Document: name, Location: "/", Severity: SeverityError, Message: err.Error()}}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return []Finding{{Document: name, Location: "/", Severity: SeverityError, Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	var findings []Finding
	if err := schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return append(findings, Finding{Document: name, Location: "/", Severity: SeverityError, Message: err.Error()})
		}
		for _, leaf := range leafErrors(verr) {
			loc := leaf.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			findings = append(findings, Finding{Document: name, Location: loc, Severity: SeverityError, Message: leaf.Message})
		}
	}

	doc, err := Decode(name, data)
	if err != nil {
		// schema already reported the shape problem
		return findings
	}
	return append(findings, extra(name, doc)...)
}

func lintCommandPolicy(name string, doc Document) []Finding {
	findings := lintSchemaVersion(name, doc)
	if v, ok := doc.String("policyVersion"); ok && v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			findings = append(findings, Finding{
				Document: name,
				Location: "/policyVersion",
				Severity: SeverityWarn,
				Message:  fmt.Sprintf("policyVersion %q is not a semantic version", v),
			})
		}
	}
	if mode, ok := doc.String("enforcementMode"); ok && mode != "enforce" {
		findings = append(findings, Finding{
			Document: name,
			Location: "/enforcementMode",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("enforcementMode %q denies every action", mode),
		})
	}
	return findings
}

func lintAdapterContracts(name string, doc Document) []Finding {
	findings := lintSchemaVersion(name, doc)
	adapters, ok := doc["adapters"].([]any)
	if !ok {
		return findings
	}
	seen := make(map[string]int)
	for i, a := range adapters {
		obj, ok := a.(map[string]any)
		if !ok {
			continue
		}
		adapterName, ok := obj["name"].(string)
		if !ok {
			continue
		}
		if first, dup := seen[adapterName]; dup {
			findings = append(findings, Finding{
				Document: name,
				Location: fmt.Sprintf("/adapters/%d/name", i),
				Severity: SeverityWarn,
				Message:  fmt.Sprintf("duplicate adapter name %q shadowed by /adapters/%d (first match wins)", adapterName, first),
			})
			continue
		}
		seen[adapterName] = i
	}
	return findings
}

func lintSchemaVersion(name string, doc Document) []Finding {
	raw, ok := doc["schemaVersion"]
	if !ok {
		return nil // schema reports the missing field
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")
	default:
		return nil
	}

	version, err := semver.NewVersion(text)
	if err != nil {
		return []Finding{{Document: name, Location: "/schemaVersion", Severity: SeverityError,
			Message: fmt.Sprintf("schemaVersion %q is not a version: %v", text, err)}}
	}
	constraint, err := semver.NewConstraint(SupportedSchemaVersions)
	if err != nil {
		return []Finding{{Document: name, Location: "/schemaVersion", Severity: SeverityError, Message: err.Error()}}
	}
	if !constraint.Check(version) {
		return []Finding{{Document: name, Location: "/schemaVersion", Severity: SeverityError,
			Message: fmt.Sprintf("schemaVersion %s is not supported (want %s)", text, SupportedSchemaVersions)}}
	}
	return nil
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	files := map[string]string{
		commandPolicySchemaURL:    "schemas/command-policy.schema.json",
		adapterContractsSchemaURL: "schemas/adapter-contracts.schema.json",
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for url, file := range files {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("contract schema load failed: %w", err)
		}
		if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("contract schema load failed: %w", err)
		}
	}

	compiled := make(map[string]*jsonschema.Schema, len(files))
	for url := range files {
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("contract schema compile failed: %w", err)
		}
		compiled[url] = sch
	}
	return compiled, nil
}

func leafErrors(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		leaves = append(leaves, leafErrors(cause)...)
	}
	return leaves
}
