// Package signature implements the typed prompt-and-response programming
// model: Signature declares a module's input/output fields, Module pairs a
// signature with a prompting strategy, instructions, and demos, and Example
// captures a single labeled training instance.
package signature

import (
	"encoding/json"
	"fmt"
)

type (
	// Validator checks a candidate field value and reports any constraint
	// violations. A nil Validator imposes no constraint.
	Validator func(value any) []FieldIssue

	// FieldIssue reports a single validation failure for a field. Constraint
	// follows the same small vocabulary as the teacher's generated tool
	// codecs: "missing_field", "invalid_enum_value", "invalid_format",
	// "invalid_pattern", "invalid_range", "invalid_length",
	// "invalid_field_type".
	FieldIssue struct {
		Field      string
		Constraint string
		Detail     string
	}

	// Field names and (optionally) constrains one signature input or output.
	// Optional only applies to output fields: when true, the field may be
	// absent from a parsed response without affecting RunResult.Ok, and its
	// value resolves to nil ("null") rather than being treated as missing.
	Field struct {
		Name      string
		Validator Validator
		Optional  bool
	}

	// Signature is a named, typed interface describing a module's inputs and
	// outputs. Input and output field names must be disjoint.
	Signature struct {
		Name    string
		Inputs  []Field
		Outputs []Field
	}
)

// fieldJSON is Field's wire shape. Validator is a func value and cannot be
// serialized, so persisted signatures carry field names and optionality only;
// a rehydrated Field has no validator attached (callers that need one
// reconstruct it via a fresh Signature built from JSON Schemas, not from the
// persisted archive document itself).
type fieldJSON struct {
	Name     string `json:"name"`
	Optional bool   `json:"optional,omitempty"`
}

// MarshalJSON renders f without its Validator func, which JSON cannot encode.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldJSON{Name: f.Name, Optional: f.Optional})
}

// UnmarshalJSON populates f's Name and Optional; Validator is left nil.
func (f *Field) UnmarshalJSON(data []byte) error {
	var fj fieldJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return err
	}
	f.Name, f.Optional, f.Validator = fj.Name, fj.Optional, nil
	return nil
}

// Validate runs f's validator against value, returning nil when the field has
// no validator or the value satisfies it.
func (f Field) Validate(value any) []FieldIssue {
	if f.Validator == nil {
		return nil
	}
	return f.Validator(value)
}

// New constructs a Signature, validating that field names are unique within
// each side and that no name appears on both sides.
func New(name string, inputs, outputs []Field) (Signature, error) {
	sig := Signature{Name: name, Inputs: inputs, Outputs: outputs}
	if err := sig.validateFieldNames(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

func (s Signature) validateFieldNames() error {
	seenIn := make(map[string]struct{}, len(s.Inputs))
	for _, f := range s.Inputs {
		if f.Name == "" {
			return fmt.Errorf("signature %q: input field name must not be empty", s.Name)
		}
		if _, dup := seenIn[f.Name]; dup {
			return fmt.Errorf("signature %q: duplicate input field %q", s.Name, f.Name)
		}
		seenIn[f.Name] = struct{}{}
	}
	seenOut := make(map[string]struct{}, len(s.Outputs))
	for _, f := range s.Outputs {
		if f.Name == "" {
			return fmt.Errorf("signature %q: output field name must not be empty", s.Name)
		}
		if _, dup := seenOut[f.Name]; dup {
			return fmt.Errorf("signature %q: duplicate output field %q", s.Name, f.Name)
		}
		if _, clash := seenIn[f.Name]; clash {
			return fmt.Errorf("signature %q: field %q appears in both inputs and outputs", s.Name, f.Name)
		}
		seenOut[f.Name] = struct{}{}
	}
	return nil
}

// InputNames returns the ordered list of input field names.
func (s Signature) InputNames() []string { return names(s.Inputs) }

// OutputNames returns the ordered list of output field names.
func (s Signature) OutputNames() []string { return names(s.Outputs) }

// RequiredOutputs returns the output fields that must be present in a parsed
// response for RunResult.Ok to be true.
func (s Signature) RequiredOutputs() []Field {
	req := make([]Field, 0, len(s.Outputs))
	for _, f := range s.Outputs {
		if !f.Optional {
			req = append(req, f)
		}
	}
	return req
}

func names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// HasOutput reports whether name is a declared output field.
func (s Signature) HasOutput(name string) bool {
	for _, f := range s.Outputs {
		if f.Name == name {
			return true
		}
	}
	return false
}

// OutputField returns the output field named name, if declared.
func (s Signature) OutputField(name string) (Field, bool) {
	for _, f := range s.Outputs {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
