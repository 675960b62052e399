// Package selector implements the runtime elite selector (§4.5): it maps a
// symbolic or free-text priority onto a target phenotype and dispatches to
// the nearest elite in a ModuleArchive snapshot.
package selector

import (
	"context"
	"math"
	"strings"

	"github.com/diogenesoftoronto/chrysalis-forge/archive"
	"github.com/diogenesoftoronto/chrysalis-forge/forgeerr"
	"github.com/diogenesoftoronto/chrysalis-forge/phenotype"
	"github.com/diogenesoftoronto/chrysalis-forge/signature"
	"github.com/diogenesoftoronto/chrysalis-forge/telemetry"
)

// PriorityResolver calls a small LLM with a JSON-only prompt and returns
// {accuracy, speed, cost, brevity} each in [0,1], used as a last resort when
// no keyword matches a free-text priority (§4.5 step 1).
type PriorityResolver func(ctx context.Context, priority string) (accuracy, speed, cost, brevity float64, err error)

// symbolicTags is the full set of priority strings eligible for the bin
// shortcut (§4.5 step 2).
var symbolicTags = map[string]phenotype.BinKey{
	"cheap":   {Cost: phenotype.Cheap},
	"fast":    {Latency: phenotype.Fast},
	"verbose": {Usage: phenotype.Verbose},
	"compact": {Usage: phenotype.Compact},
	"premium": {Cost: phenotype.Premium},
	"slow":    {Latency: phenotype.Slow},
	// "best" has no corresponding BinKey dimension; it only ever resolves
	// through the keyword map and k-NN dispatch.
}

// target is the 4-tuple (accuracy, latency, cost, usage) a priority resolves
// to before normalization and k-NN search.
type target struct {
	accuracy, latency, cost, usage float64
}

// keywordTargets is the case-insensitive substring keyword map from §4.5
// step 1. Checked in the fixed order below so a priority naming keywords
// from several entries (e.g. "cheap and fast") resolves deterministically to
// the first matching entry.
var keywordTargets = []struct {
	keywords []string
	t        target
}{
	{[]string{"cheap", "budget"}, target{5, 0.5, 0, 0.5}},
	{[]string{"fast", "quick"}, target{5, 0, 0.5, 0.5}},
	{[]string{"accurate", "best", "precise"}, target{10, 0.5, 0.5, 0.5}},
	{[]string{"concise", "compact"}, target{5, 0.5, 0.5, 0}},
	{[]string{"verbose", "thorough"}, target{10, 0.8, 0.8, 1}},
}

var neutralTarget = target{5, 0.5, 0.5, 0.5}

// Select dispatches to the elite module best matching priority in the
// archive snapshot. resolver may be nil; when no keyword matches and
// resolver is nil, Select falls back to the neutral target and logs the
// downgrade (§9 "log, don't guess"). A nil logger is treated as a no-op.
func Select(ctx context.Context, snap archive.Snapshot, priority string, resolver PriorityResolver, logger telemetry.Logger) (signature.Module, error) {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	lower := strings.ToLower(strings.TrimSpace(priority))

	if key, ok := symbolicTags[lower]; ok {
		if mod, found := binShortcut(snap, key); found {
			return mod, nil
		}
	}

	t := resolveTarget(ctx, lower, resolver, logger)
	return knnDispatch(snap, t)
}

// binShortcut returns the highest-scoring elite among the bins whose key
// contains the tag's fixed dimension, if any such bin exists. Several full
// BinKeys can share that one dimension; among equal scores the bin whose key
// sorts first (cost, then latency, then usage label) wins, so a fixed
// snapshot and tag always yield the same module regardless of map iteration
// order.
func binShortcut(snap archive.Snapshot, tag phenotype.BinKey) (signature.Module, bool) {
	keyStr := func(k phenotype.BinKey) string {
		return string(k.Cost) + "|" + string(k.Latency) + "|" + string(k.Usage)
	}
	var best archive.Elite
	var bestKey phenotype.BinKey
	found := false
	for key, elite := range snap.Bins {
		if !matchesTag(key, tag) {
			continue
		}
		if !found || elite.Score > best.Score || (elite.Score == best.Score && keyStr(key) < keyStr(bestKey)) {
			best, bestKey = elite, key
			found = true
		}
	}
	return best.Module, found
}

func matchesTag(key, tag phenotype.BinKey) bool {
	if tag.Cost != "" && key.Cost != tag.Cost {
		return false
	}
	if tag.Latency != "" && key.Latency != tag.Latency {
		return false
	}
	if tag.Usage != "" && key.Usage != tag.Usage {
		return false
	}
	return true
}

func resolveTarget(ctx context.Context, lower string, resolver PriorityResolver, logger telemetry.Logger) target {
	for _, kt := range keywordTargets {
		for _, kw := range kt.keywords {
			if strings.Contains(lower, kw) {
				return kt.t
			}
		}
	}
	if resolver != nil {
		accuracy, speed, cost, brevity, err := resolver(ctx, lower)
		if err == nil {
			return target{
				accuracy: accuracy * 10,
				latency:  1 - speed,
				cost:     1 - cost,
				usage:    1 - brevity,
			}
		}
		logger.Warn(ctx, "priority resolver failed, falling back to neutral target", "priority", lower, "error", err.Error())
	} else {
		logger.Info(ctx, "priority had no keyword match and no resolver is configured; using neutral target", "priority", lower)
	}
	return neutralTarget
}

// knnDispatch implements §4.5 step 3: normalize target and every cloud point
// to [0,1] per dimension and return the module of the nearest point. An
// empty cloud returns the default-key's module; a wholly empty archive
// raises ArchiveEmpty.
func knnDispatch(snap archive.Snapshot, t target) (signature.Module, error) {
	if len(snap.Cloud) == 0 {
		if snap.HasDefault {
			if elite, ok := snap.Bins[snap.DefaultKey]; ok {
				return elite.Module, nil
			}
		}
		return signature.Module{}, &forgeerr.ArchiveEmpty{}
	}

	bounds := computeBounds(snap.Cloud)
	// t's latency/cost/usage are already normalized to [0,1] desired values
	// (resolveTarget and the keyword table build them that way); only
	// accuracy shares the cloud's raw 0-10 scale and needs rescaling.
	nt := target{
		accuracy: normalizeDim(t.accuracy, bounds.accMin, bounds.accMax),
		latency:  t.latency,
		cost:     t.cost,
		usage:    t.usage,
	}

	bestIdx := -1
	bestDist := math.Inf(1)
	for i, cp := range snap.Cloud {
		np := normalize(cp.Phenotype.Accuracy, cp.Phenotype.LatencyMS, cp.Phenotype.CostUSD, cp.Phenotype.TotalTokens, bounds)
		d := distance(nt, np)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
		// Strictly-less preserves "ties broken by insertion order (oldest
		// wins)" since snap.Cloud is in append order and a later tie never
		// overwrites bestIdx.
	}
	return snap.Cloud[bestIdx].Module, nil
}

type bounds struct {
	accMin, accMax         float64
	latMin, latMax         float64
	costMin, costMax       float64
	usageMin, usageMax     float64
}

func computeBounds(cloud []archive.CloudPoint) bounds {
	b := bounds{
		accMin: math.Inf(1), accMax: math.Inf(-1),
		latMin: math.Inf(1), latMax: math.Inf(-1),
		costMin: math.Inf(1), costMax: math.Inf(-1),
		usageMin: math.Inf(1), usageMax: math.Inf(-1),
	}
	for _, cp := range cloud {
		p := cp.Phenotype
		b.accMin, b.accMax = math.Min(b.accMin, p.Accuracy), math.Max(b.accMax, p.Accuracy)
		b.latMin, b.latMax = math.Min(b.latMin, p.LatencyMS), math.Max(b.latMax, p.LatencyMS)
		b.costMin, b.costMax = math.Min(b.costMin, p.CostUSD), math.Max(b.costMax, p.CostUSD)
		b.usageMin, b.usageMax = math.Min(b.usageMin, p.TotalTokens), math.Max(b.usageMax, p.TotalTokens)
	}
	return b
}

func normalize(accuracy, latency, cost, usage float64, b bounds) target {
	return target{
		accuracy: normalizeDim(accuracy, b.accMin, b.accMax),
		latency:  normalizeDim(latency, b.latMin, b.latMax),
		cost:     normalizeDim(cost, b.costMin, b.costMax),
		usage:    normalizeDim(usage, b.usageMin, b.usageMax),
	}
}

// normalizeDim maps v into [0,1] given observed min/max; a zero-width
// dimension (min == max) maps every value to 0.5, per §4.5 step 3.
func normalizeDim(v, min, max float64) float64 {
	width := max - min
	if width == 0 {
		return 0.5
	}
	return (v - min) / width
}

func distance(a, b target) float64 {
	da := a.accuracy - b.accuracy
	dl := a.latency - b.latency
	dc := a.cost - b.cost
	du := a.usage - b.usage
	return math.Sqrt(da*da + dl*dl + dc*dc + du*du)
}
