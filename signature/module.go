package signature

import (
	"fmt"

	"github.com/google/uuid"
)

// Strategy selects how a Module renders its prompt. Predict asks directly for
// the output JSON; ChainOfThought additionally hints at step-by-step
// reasoning and reserves a hidden scratch field.
type Strategy string

const (
	// Predict renders a direct prompt with no reasoning scaffold.
	Predict Strategy = "predict"
	// ChainOfThought adds a "think step-by-step" hint and a hidden scratch
	// output field that is never required for RunResult.Ok.
	ChainOfThought Strategy = "chain_of_thought"
)

// scratchFieldName is the hidden field CoT strategy reserves for the model's
// reasoning trace. It is never a required output.
const scratchFieldName = "_reasoning"

type (
	// Example is a single labeled training instance: the inputs a module
	// would be given, and the expected outputs it should have produced.
	Example struct {
		Inputs   map[string]any
		Expected map[string]any
	}

	// Demo is a few-shot example embedded verbatim in the rendered prompt.
	// Demo reuses Example's shape: Inputs is the input binding, Expected is
	// the output binding shown to the model.
	Demo = Example

	// Params carries free-form, provider-facing generation parameters
	// (temperature, max tokens, and similar knobs) that render.go does not
	// interpret but a model.Client adapter may.
	Params map[string]any

	// Module is an immutable prompting program: a signature plus a strategy,
	// instructions, zero or more demos, and generation parameters.
	Module struct {
		ID           string
		Signature    Signature
		Strategy     Strategy
		Instructions string
		Demos        []Demo
		Params       Params
	}
)

// NewModule constructs a Module, validating that every demo's bindings
// conform to sig (binding keys must be a subset of the matching side's field
// names) and assigning a fresh id when id is empty.
func NewModule(id string, sig Signature, strategy Strategy, instructions string, demos []Demo, params Params) (Module, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strategy != Predict && strategy != ChainOfThought {
		return Module{}, fmt.Errorf("module %s: unknown strategy %q", id, strategy)
	}
	for i, d := range demos {
		if err := validateBinding(sig.InputNames(), d.Inputs); err != nil {
			return Module{}, fmt.Errorf("module %s: demo[%d] input binding: %w", id, i, err)
		}
		if err := validateBinding(sig.OutputNames(), d.Expected); err != nil {
			return Module{}, fmt.Errorf("module %s: demo[%d] output binding: %w", id, i, err)
		}
	}
	return Module{
		ID:           id,
		Signature:    sig,
		Strategy:     strategy,
		Instructions: instructions,
		Demos:        demos,
		Params:       params,
	}, nil
}

// WithDemos returns a copy of m with its demos replaced. Modules are
// immutable once constructed; mutation methods always return a new value.
func (m Module) WithDemos(demos []Demo) Module {
	m.Demos = demos
	return m
}

// WithInstructions returns a copy of m with its instructions replaced.
func (m Module) WithInstructions(instructions string) Module {
	m.Instructions = instructions
	return m
}

func validateBinding(fieldNames []string, binding map[string]any) error {
	allowed := make(map[string]struct{}, len(fieldNames))
	for _, n := range fieldNames {
		allowed[n] = struct{}{}
	}
	for k := range binding {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("key %q is not a declared field", k)
		}
	}
	return nil
}
