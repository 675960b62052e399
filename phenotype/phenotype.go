// Package phenotype computes the continuous behavioral coordinates of a
// module's observed run (Phenotype) and the discrete bin label those
// coordinates fall into under a set of thresholds (BinKey).
package phenotype

import (
	"math"

	"github.com/diogenesoftoronto/chrysalis-forge/runresult"
)

type (
	// CostBin is the discrete cost label.
	CostBin string
	// LatencyBin is the discrete latency label.
	LatencyBin string
	// UsageBin is the discrete token-usage label.
	UsageBin string

	// Phenotype is the continuous 4-tuple describing one observed run:
	// accuracy contribution, latency, cost, and total tokens. All components
	// are finite and non-negative (§3).
	Phenotype struct {
		Accuracy    float64
		LatencyMS   float64
		CostUSD     float64
		TotalTokens float64
	}

	// BinKey is the discrete 3-tuple a Phenotype maps to under a set of
	// Thresholds.
	BinKey struct {
		Cost    CostBin
		Latency LatencyBin
		Usage   UsageBin
	}

	// Thresholds are the relative cutoffs (§4.3 step 3) that separate cheap
	// from premium, fast from slow, and compact from verbose.
	Thresholds struct {
		Cost    float64
		Latency float64
		Usage   float64
	}
)

const (
	Cheap   CostBin = "cheap"
	Premium CostBin = "premium"

	Fast LatencyBin = "fast"
	Slow LatencyBin = "slow"

	Compact UsageBin = "compact"
	Verbose UsageBin = "verbose"
)

// Of computes the Phenotype for a run given its accuracy contribution,
// RunMeta, and a PriceTable for cost resolution (§4.4).
func Of(accuracy float64, meta runresult.RunMeta, prices runresult.PriceTable) Phenotype {
	return Phenotype{
		Accuracy:    accuracy,
		LatencyMS:   meta.ElapsedMS,
		CostUSD:     prices.CostUSD(meta.Model, meta.PromptTokens, meta.CompletionTokens),
		TotalTokens: float64(meta.TotalTokens()),
	}
}

// Bin maps p to a BinKey under thresholds: a dimension with a value strictly
// below its threshold takes the "cheaper"/"faster"/"more compact" label;
// otherwise (including when the threshold is exactly zero, per §8's
// "Thresholds zero" boundary) it takes the opposite label, so an
// all-zero-threshold archive bins every phenotype to
// (premium, slow, verbose) without division by zero.
func Bin(p Phenotype, t Thresholds) BinKey {
	key := BinKey{Cost: Premium, Latency: Slow, Usage: Verbose}
	if p.CostUSD < t.Cost {
		key.Cost = Cheap
	}
	if p.LatencyMS < t.Latency {
		key.Latency = Fast
	}
	if p.TotalTokens < t.Usage {
		key.Usage = Compact
	}
	return key
}

// Valid reports whether p's components are all finite and non-negative.
func (p Phenotype) Valid() bool {
	for _, v := range []float64{p.Accuracy, p.LatencyMS, p.CostUSD, p.TotalTokens} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
