package nodes

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field types understood by the host.
const (
	TypeVideo   = "VIDEO"
	TypeImage   = "IMAGE"
	TypeString  = "STRING"
	TypeInt     = "INT"
	TypeFloat   = "FLOAT"
	TypeBoolean = "BOOLEAN"
)

// Input declares one node input.
type Input struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Default  any      `json:"default,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Step     *float64 `json:"step,omitempty"`
	Optional bool     `json:"optional,omitempty"`
	Tooltip  string   `json:"tooltip,omitempty"`
}

// Output declares one node output.
type Output struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the host-facing description of a node.
type Schema struct {
	ID          string   `json:"node_id"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Inputs      []Input  `json:"inputs"`
	Outputs     []Output `json:"outputs"`
}

func bound(v float64) *float64 { return &v }

func intInput(name string, def, lo, hi int, tooltip string) Input {
	return Input{Name: name, Type: TypeInt, Default: def, Min: bound(float64(lo)), Max: bound(float64(hi)), Step: bound(1), Tooltip: tooltip}
}

func stringInput(name, def, tooltip string) Input {
	return Input{Name: name, Type: TypeString, Default: def, Tooltip: tooltip}
}

// decode merges raw over the schema defaults, checks required inputs and
// numeric ranges, and unmarshals the result into dst.
func (s Schema) decode(raw json.RawMessage, dst any) error {
	given := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &given); err != nil {
			return fmt.Errorf("%s: inputs must be a JSON object: %w", s.ID, err)
		}
	}

	known := make(map[string]bool, len(s.Inputs))
	merged := make(map[string]any, len(s.Inputs))
	for _, in := range s.Inputs {
		known[in.Name] = true
		v, ok := given[in.Name]
		if !ok {
			if in.Default == nil && !in.Optional {
				return fmt.Errorf("%s: missing required input %q", s.ID, in.Name)
			}
			if in.Default != nil {
				merged[in.Name] = in.Default
			}
			continue
		}
		if err := in.checkRange(v); err != nil {
			return fmt.Errorf("%s: %w", s.ID, err)
		}
		merged[in.Name] = v
	}
	for name := range given {
		if !known[name] {
			return fmt.Errorf("%s: unknown input %q", s.ID, name)
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: %w", s.ID, err)
	}
	return nil
}

func (in Input) checkRange(v json.RawMessage) error {
	if in.Type != TypeInt && in.Type != TypeFloat {
		return nil
	}
	var n float64
	if err := json.Unmarshal(v, &n); err != nil {
		return fmt.Errorf("input %q must be a number: %w", in.Name, err)
	}
	if in.Type == TypeInt && n != float64(int64(n)) {
		return fmt.Errorf("input %q must be an integer, got %v", in.Name, n)
	}
	if in.Min != nil && n < *in.Min {
		return fmt.Errorf("input %q must be >= %v, got %v", in.Name, *in.Min, n)
	}
	if in.Max != nil && n > *in.Max {
		return fmt.Errorf("input %q must be <= %v, got %v", in.Name, *in.Max, n)
	}
	return nil
}
