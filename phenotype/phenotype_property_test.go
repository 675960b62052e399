package phenotype

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBinThresholdBoundaryProperty verifies §8's "Thresholds zero" boundary:
// a dimension strictly below its threshold always bins to the cheaper/faster/
// more-compact label, and one at or above the threshold always bins to the
// opposite label, for any non-negative cost/latency/usage and any threshold.
func TestBinThresholdBoundaryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("cost dimension bins strictly by the below-threshold rule", prop.ForAll(
		func(cost, threshold float64) bool {
			p := Phenotype{CostUSD: cost}
			key := Bin(p, Thresholds{Cost: threshold})
			if cost < threshold {
				return key.Cost == Cheap
			}
			return key.Cost == Premium
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 1e6),
	))

	properties.Property("an all-zero threshold always bins to premium/slow/verbose", prop.ForAll(
		func(cost, latency, usage float64) bool {
			p := Phenotype{CostUSD: cost, LatencyMS: latency, TotalTokens: usage}
			key := Bin(p, Thresholds{})
			return key == BinKey{Cost: Premium, Latency: Slow, Usage: Verbose}
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 1e6),
	))

	properties.TestingRun(t)
}
