package phenotype

import (
	"sort"

	"github.com/diogenesoftoronto/chrysalis-forge/runresult"
)

// ThresholdsFromMeta computes the relative bootstrap thresholds (§4.3 step 3)
// from a batch of seed RunMetas: the median cost, median latency, and median
// total-token count, observed across the batch. An empty metas slice yields
// zero thresholds (§8's "Thresholds zero" boundary).
func ThresholdsFromMeta(metas []runresult.RunMeta, prices runresult.PriceTable) Thresholds {
	if len(metas) == 0 {
		return Thresholds{}
	}
	costs := make([]float64, len(metas))
	latencies := make([]float64, len(metas))
	usages := make([]float64, len(metas))
	for i, m := range metas {
		costs[i] = prices.CostUSD(m.Model, m.PromptTokens, m.CompletionTokens)
		latencies[i] = m.ElapsedMS
		usages[i] = float64(m.TotalTokens())
	}
	return Thresholds{
		Cost:    median(costs),
		Latency: median(latencies),
		Usage:   median(usages),
	}
}

// median returns the median of values. For an even-length input it averages
// the two middle elements. values is not mutated.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
