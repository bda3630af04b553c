package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly, and required fields are
// validated before the scenario can run.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Backend {
	case "", BackendLocal, BackendOffline:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendLocal, BackendOffline, s.Backend)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	known := make(map[int64]bool, len(s.Products))
	for i, p := range s.Products {
		if p.ID <= 0 {
			return fmt.Errorf("products[%d]: id must be positive", i)
		}
		if p.Name == "" {
			return fmt.Errorf("products[%d]: name is required", i)
		}
		if known[p.ID] {
			return fmt.Errorf("products[%d]: duplicate id %d", i, p.ID)
		}
		known[p.ID] = true
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpAdd, OpSetQuantity:
			if !known[step.Product] {
				return fmt.Errorf("steps[%d]: unknown product %d", i, step.Product)
			}
		case OpRemove:
			if step.Product == 0 {
				return fmt.Errorf("steps[%d]: product is required", i)
			}
		case OpClear, OpSync:
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}
	return nil
}
