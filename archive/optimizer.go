package archive

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/diogenesoftoronto/chrysalis-forge/phenotype"
	"github.com/diogenesoftoronto/chrysalis-forge/runresult"
	"github.com/diogenesoftoronto/chrysalis-forge/signature"
	"github.com/diogenesoftoronto/chrysalis-forge/telemetry"
)

type (
	// Sender invokes the upstream model with a rendered prompt and returns
	// whether the call succeeded, the raw content, and run metadata. It is
	// the optimizer's "send!" collaborator from §4.3.
	Sender func(ctx context.Context, prompt signature.Prompt) (ok bool, raw string, meta runresult.RunMeta, err error)

	// VariantGenerator proposes a child module from a parent during the
	// evolution loop (§4.3 step 5, §9 "Meta-optimizer as pluggable
	// strategy"). explanation is a short, human-readable rationale the
	// caller may log; it has no effect on scoring.
	VariantGenerator interface {
		GenerateVariant(ctx context.Context, parent signature.Module, trainset []signature.Example, send Sender) (signature.Module, string, error)
	}

	// Params tunes one MAP-Elites run.
	Params struct {
		KDemos    int
		NPerGen   int
		Iterations int
		UseMeta   bool
		MaxCloudSize int
		// ExplorationRate is the probability, on each generation, that
		// pickParentBin samples the least-visited bin instead of a
		// uniformly random one; must lie in [0, 1]. Zero reproduces plain
		// uniform sampling.
		ExplorationRate float64
	}

	// Optimizer evolves a seed module into a ModuleArchive.
	Optimizer struct {
		Prices    runresult.PriceTable
		Generator VariantGenerator
		Rand      *rand.Rand
		Logger    telemetry.Logger
	}
)

// seedMutations are the fixed instruction mutations applied to the seed
// module during fan-out (§4.3 step 2).
var seedMutations = []func(string) string{
	func(base string) string { return base },
	func(base string) string { return appendHint(base, "Be concise.") },
	func(base string) string { return appendHint(base, "Think step-by-step.") },
	func(base string) string { return appendHint(base, "Output STRICT JSON.") },
}

func appendHint(base, hint string) string {
	if base == "" {
		return hint
	}
	return base + "\n" + hint
}

// Run executes the full MAP-Elites algorithm from §4.3 and returns the
// resulting ModuleArchive.
func (o *Optimizer) Run(ctx context.Context, seed signature.Module, ctxVal signature.Ctx, trainset []signature.Example, send Sender, params Params) (*ModuleArchive, error) {
	if len(trainset) == 0 {
		return nil, fmt.Errorf("archive: trainset must not be empty")
	}
	if err := validateTrainset(seed.Signature, trainset); err != nil {
		return nil, err
	}
	rng := o.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	logger := o.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	arc := New(seed.ID, seed.Signature)

	// Step 1: demo bootstrap.
	demos := sampleDemos(trainset, params.KDemos, rng)
	bootstrapped := seed.WithDemos(demos)

	// Step 2: seed fan-out.
	seeds := make([]signature.Module, 0, len(seedMutations))
	for i, mutate := range seedMutations {
		seeds = append(seeds, bootstrapped.WithInstructions(mutate(bootstrapped.Instructions)).WithDemos(demos))
		_ = i
	}

	type evalResult struct {
		mod   signature.Module
		score float64
		ph    phenotype.Phenotype
		meta  runresult.RunMeta
	}

	evaluate := func(mod signature.Module, thresholds phenotype.Thresholds) []evalResult {
		results := make([]evalResult, 0, len(trainset))
		for _, ex := range trainset {
			rr, err := invoke(ctx, mod, ctxVal, ex, send)
			if err != nil {
				// §4.3 failure policy: a single bad candidate never aborts the
				// optimizer; it scores at the floor with a zero phenotype.
				logger.Warn(ctx, "candidate evaluation failed", "module", mod.ID, "error", err.Error())
				results = append(results, evalResult{mod: mod, score: 0.1, ph: phenotype.Phenotype{}, meta: runresult.RunMeta{}})
				continue
			}
			score := runresult.Score(ex.Expected, rr, o.Prices)
			ph := phenotype.Of(score, rr.Meta, o.Prices)
			results = append(results, evalResult{mod: mod, score: score, ph: ph, meta: rr.Meta})
		}
		return results
	}

	// Step 2 (continued): evaluate every seed against the full trainset with
	// zeroed thresholds.
	var allMetas []runresult.RunMeta
	seedResults := make([][]evalResult, len(seeds))
	for i, s := range seeds {
		seedResults[i] = evaluate(s, phenotype.Thresholds{})
		for _, r := range seedResults[i] {
			allMetas = append(allMetas, r.meta)
		}
	}

	// Step 3: relative thresholds from the seed batch.
	thresholds := phenotype.ThresholdsFromMeta(allMetas, o.Prices)

	// Step 4: re-bin seeds under the new thresholds and insert into the
	// archive and point-cloud.
	for _, results := range seedResults {
		for _, r := range results {
			key := phenotype.Bin(r.ph, thresholds)
			arc.Update(r.mod, r.score, key, r.ph)
		}
	}

	maxCloud := params.MaxCloudSize
	if maxCloud <= 0 {
		maxCloud = 1000
	}
	arc.Prune(maxCloud, uniformSample(rng))

	// Step 5: evolution loop.
	if params.UseMeta && o.Generator != nil {
		for gen := 0; gen < params.Iterations; gen++ {
			snap := arc.Snapshot()
			parent, ok := pickParentBin(snap, rng, params.ExplorationRate)
			if !ok {
				break
			}
			for i := 0; i < params.NPerGen; i++ {
				child, explanation, err := o.Generator.GenerateVariant(ctx, parent, trainset, send)
				if err != nil {
					logger.Warn(ctx, "variant generation failed", "generation", gen, "error", err.Error())
					continue
				}
				logger.Debug(ctx, "generated variant", "generation", gen, "variant", i, "explanation", explanation)
				for _, r := range evaluate(child, thresholds) {
					key := phenotype.Bin(r.ph, thresholds)
					arc.Update(r.mod, r.score, key, r.ph)
				}
			}
			arc.Prune(maxCloud, uniformSample(rng))
		}
	}

	return arc, nil
}

func invoke(ctx context.Context, mod signature.Module, ctxVal signature.Ctx, ex signature.Example, send Sender) (runresult.RunResult, error) {
	prompt, err := signature.RenderPrompt(mod, ctxVal, ex.Inputs)
	if err != nil {
		return runresult.RunResult{}, err
	}
	ok, raw, meta, err := send(ctx, prompt)
	if err != nil {
		return runresult.RunResult{}, err
	}
	if !ok {
		return runresult.RunResult{Ok: false, Outputs: map[string]any{}, Raw: raw, Prompt: prompt, Meta: meta}, nil
	}
	parsedOK, outputs := signature.ParseResponse(mod.Signature, raw)
	return runresult.RunResult{Ok: parsedOK, Outputs: outputs, Raw: raw, Prompt: prompt, Meta: meta}, nil
}

func validateTrainset(sig signature.Signature, trainset []signature.Example) error {
	for i, ex := range trainset {
		for _, name := range sig.InputNames() {
			if _, ok := ex.Inputs[name]; !ok {
				return fmt.Errorf("archive: trainset[%d] missing required input %q", i, name)
			}
		}
	}
	return nil
}

func sampleDemos(trainset []signature.Example, k int, rng *rand.Rand) []signature.Example {
	if k <= 0 {
		return nil
	}
	if k > len(trainset) {
		k = len(trainset)
	}
	idx := uniformSample(rng)(len(trainset), k)
	demos := make([]signature.Example, len(idx))
	for i, j := range idx {
		demos[i] = trainset[j]
	}
	return demos
}

// uniformSample returns a function that selects k distinct indices in
// [0, n) uniformly at random without replacement, using rng as the source of
// randomness (a Fisher-Yates partial shuffle).
func uniformSample(rng *rand.Rand) func(n, k int) []int {
	return func(n, k int) []int {
		if k >= n {
			idx := make([]int, n)
			for i := range idx {
				idx[i] = i
			}
			return idx
		}
		pool := make([]int, n)
		for i := range pool {
			pool[i] = i
		}
		for i := 0; i < k; i++ {
			j := i + rng.Intn(n-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		return pool[:k]
	}
}

// pickParentBin samples a parent bin from the snapshot (§4.3 step 5). With
// probability explorationRate it picks the least-visited bin (ties broken by
// map iteration order, which is already random per call); otherwise it falls
// back to sampling uniformly at random over all bins. ok is false when the
// archive has no bins yet.
func pickParentBin(snap Snapshot, rng *rand.Rand, explorationRate float64) (signature.Module, bool) {
	if len(snap.Bins) == 0 {
		return signature.Module{}, false
	}
	keys := make([]phenotype.BinKey, 0, len(snap.Bins))
	for k := range snap.Bins {
		keys = append(keys, k)
	}

	if explorationRate > 0 && rng.Float64() < explorationRate {
		least := keys[0]
		for _, k := range keys[1:] {
			if snap.Bins[k].Visits < snap.Bins[least].Visits {
				least = k
			}
		}
		return snap.Bins[least].Module, true
	}

	chosen := keys[rng.Intn(len(keys))]
	return snap.Bins[chosen].Module, true
}
