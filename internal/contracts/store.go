// Package contracts reads the command policy and adapter contract documents.
package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/govgate/govgate/internal/models"
)

// Default document locations, relative to the repository root
const (
	DefaultCommandPolicyPath    = ".governance/command-policy.json"
	DefaultAdapterContractsPath = ".governance/adapter-contracts.json"
)

// Document raw JSON object. Fields are checked by the caller before use.
type Document map[string]any

// Store reads contract documents under Root. It keeps no state between
// calls, so every load sees the file as it is on disk right now.
type Store struct {
	Root                 string
	CommandPolicyPath    string
	AdapterContractsPath string
}

// NewStore with default paths
func NewStore(root string) *Store {
	return &Store{
		Root:                 root,
		CommandPolicyPath:    DefaultCommandPolicyPath,
		AdapterContractsPath: DefaultAdapterContractsPath,
	}
}

// LoadCommandPolicy reads the command policy
func (s *Store) LoadCommandPolicy() (Document, error) {
	return s.load(s.CommandPolicyPath)
}

// LoadAdapterContracts reads the adapter contracts
func (s *Store) LoadAdapterContracts() (Document, error) {
	return s.load(s.AdapterContractsPath)
}

// CommandPolicyEvidence is the path recorded in decisions
func (s *Store) CommandPolicyEvidence() string {
	return filepath.ToSlash(s.CommandPolicyPath)
}

// AdapterContractsEvidence is the path recorded in decisions
func (s *Store) AdapterContractsEvidence() string {
	return filepath.ToSlash(s.AdapterContractsPath)
}

// ReadRaw returns the unparsed bytes of a document
func (s *Store) ReadRaw(rel string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, nil
}

func (s *Store) load(rel string) (Document, error) {
	data, err := s.ReadRaw(rel)
	if err != nil {
		return nil, err
	}
	return Decode(rel, data)
}

func (s *Store) resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	root := s.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Decode parses a document, requiring a top-level JSON object
func Decode(name string, data []byte) (Document, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: top-level value must be a JSON object, got %s", name, jsonKind(v))
	}
	return Document(obj), nil
}

// String field or "" when absent/not a string
func (d Document) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Inventory typed views of both documents
type Inventory struct {
	Policy    models.CommandPolicy
	Contracts models.AdapterContracts
}

// Inventory decodes both documents into their typed views. Wrong field
// types are errors here; the gate never uses these views.
func (s *Store) Inventory() (*Inventory, error) {
	inv := &Inventory{}
	targets := []struct {
		rel string
		v   any
	}{
		{s.CommandPolicyPath, &inv.Policy},
		{s.AdapterContractsPath, &inv.Contracts},
	}
	for _, t := range targets {
		data, err := s.ReadRaw(t.rel)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, t.v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.ToSlash(t.rel), err)
		}
	}
	return inv, nil
}
