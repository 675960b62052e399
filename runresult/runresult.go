// Package runresult defines the outcome of invoking a module — RunResult and
// RunMeta — plus the grounded scoring function used by the optimizer and the
// PriceTable used to compute dollar cost from token usage.
package runresult

import "github.com/diogenesoftoronto/chrysalis-forge/signature"

type (
	// RunMeta carries the metadata populated from the upstream usage block
	// plus a locally measured elapsed time.
	RunMeta struct {
		Model            string
		PromptTokens     int
		CompletionTokens int
		ElapsedMS        float64
		FinishReason     string
	}

	// RunResult is the outcome of rendering and invoking one module call.
	RunResult struct {
		Ok      bool
		Outputs map[string]any
		Raw     string
		Prompt  signature.Prompt
		Meta    RunMeta
	}
)

// TotalTokens returns the sum of prompt and completion tokens.
func (m RunMeta) TotalTokens() int { return m.PromptTokens + m.CompletionTokens }
