// Package scoreboard validates the implementation scoreboard and renders
// deterministic reports from it.
package scoreboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/govgate/govgate/internal/models"
)

// ValidationError is a scoreboard authoring mistake. It aborts the run.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Load reads and decodes the scoreboard file
func Load(path string) (*models.Scoreboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoreboard: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scoreboard, checking each field's JSON type before it is
// trusted. Semantic checks are left to Validate.
func Parse(data []byte) (*models.Scoreboard, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, invalid("Scoreboard is not a JSON object: %v", err)
	}
	if raw == nil {
		return nil, invalid("Scoreboard is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, invalid("Scoreboard is not a JSON object: trailing data")
	}

	sb := &models.Scoreboard{}
	if v, ok := raw["version"]; ok {
		n, isNum := v.(json.Number)
		if !isNum {
			return nil, invalid("Scoreboard version must be an integer")
		}
		version, err := n.Int64()
		if err != nil {
			return nil, invalid("Scoreboard version must be an integer, got %s", n)
		}
		sb.Version = int(version)
	}

	items, ok := raw["capabilities"].([]any)
	if !ok {
		return nil, invalid("Scoreboard must contain a non-empty capabilities array")
	}

	sb.Capabilities = make([]models.Capability, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, invalid("Capability at index %d must be an object", i)
		}
		c := models.Capability{}
		c.ID, _ = obj["id"].(string)
		c.Description, _ = obj["description"].(string)
		if state, ok := obj["state"].(string); ok {
			c.State = models.CapabilityState(state)
		} else if obj["state"] != nil {
			return nil, invalid("Capability at index %d has a non-string state", i)
		}
		if ev, ok := obj["evidence"]; ok && ev != nil {
			list, ok := ev.([]any)
			if !ok {
				return nil, invalid("Capability at index %d evidence must be an array of strings", i)
			}
			for _, e := range list {
				s, ok := e.(string)
				if !ok {
					return nil, invalid("Capability at index %d evidence must be an array of strings", i)
				}
				c.Evidence = append(c.Evidence, s)
			}
		}
		sb.Capabilities = append(sb.Capabilities, c)
	}
	return sb, nil
}
