package runresult

import "reflect"

// latencyPenaltySaturationMS is the divisor (ms) that turns elapsed time into
// the latency penalty: the penalty grows by 1.0 per 5000ms and saturates at
// its maximum value of 2.0 from 10000ms on. Preserved as-is to match the
// original system's behavior; see DESIGN.md for the Open Question this
// leaves on the table (a flat cap independent of task class compresses
// distinctions among long-running tasks).
const latencyPenaltySaturationMS = 5000.0

const (
	maxLatencyPenalty  = 2.0
	costPenaltyFactor  = 1000.0
	accuracyOnMatch    = 10.0
	scoreFloor         = 0.1
)

// Score computes the composite grounded score for a run, per §4.2:
//
//	accuracy    = 10.0 if expected == outputs else 0.0
//	latency_pen = min(2.0, elapsed_ms / 5000.0)
//	cost_pen    = 1000.0 * cost_usd(model, p_tok, c_tok)
//	score       = max(0.1, accuracy - latency_pen - cost_pen)
//
// The composite is grounded in observed RunMeta so evolutionary pressure
// tracks real deployment cost, not just accuracy.
func Score(expected map[string]any, rr RunResult, prices PriceTable) float64 {
	accuracy := 0.0
	if outputsMatch(expected, rr.Outputs) {
		accuracy = accuracyOnMatch
	}
	latencyPenalty := rr.Meta.ElapsedMS / latencyPenaltySaturationMS
	if latencyPenalty > maxLatencyPenalty {
		latencyPenalty = maxLatencyPenalty
	}
	costPenalty := costPenaltyFactor * prices.CostUSD(rr.Meta.Model, rr.Meta.PromptTokens, rr.Meta.CompletionTokens)

	score := accuracy - latencyPenalty - costPenalty
	if score < scoreFloor {
		score = scoreFloor
	}
	return score
}

func outputsMatch(expected, outputs map[string]any) bool {
	return reflect.DeepEqual(normalizeForComparison(expected), normalizeForComparison(outputs))
}

// normalizeForComparison strips nil-valued keys so an "expected" map that
// omits an optional field compares equal to an "outputs" map where the same
// field resolved to an explicit nil.
func normalizeForComparison(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
