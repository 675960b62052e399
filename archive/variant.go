package archive

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/diogenesoftoronto/chrysalis-forge/signature"
)

// HeuristicVariantGenerator proposes child modules by instruction mutation
// and demo resampling, without calling an upstream model. It exercises the
// evolution loop end to end when no LLM-backed generator is configured
// (§9 "Meta-optimizer as pluggable strategy").
type HeuristicVariantGenerator struct {
	Trainset []signature.Example
	KDemos   int
	Rand     *rand.Rand
}

var heuristicMutations = []struct {
	name string
	fn   func(string) string
}{
	{"append-concise", func(base string) string { return appendHint(base, "Be concise.") }},
	{"append-step-by-step", func(base string) string { return appendHint(base, "Think step-by-step.") }},
	{"append-strict-json", func(base string) string { return appendHint(base, "Output STRICT JSON.") }},
	{"resample-demos", func(base string) string { return base }},
}

// GenerateVariant implements VariantGenerator. It picks one of the fixed
// instruction mutations (or a demo resample) uniformly at random and applies
// it to parent, never invoking send.
func (g *HeuristicVariantGenerator) GenerateVariant(_ context.Context, parent signature.Module, trainset []signature.Example, _ Sender) (signature.Module, string, error) {
	rng := g.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	pool := trainset
	if len(pool) == 0 {
		pool = g.Trainset
	}

	choice := heuristicMutations[rng.Intn(len(heuristicMutations))]
	child := parent
	if choice.name == "resample-demos" {
		if len(pool) == 0 {
			return signature.Module{}, "", fmt.Errorf("archive: no trainset available to resample demos")
		}
		child = child.WithDemos(sampleDemos(pool, g.demoCount(), rng))
	} else {
		child = child.WithInstructions(choice.fn(child.Instructions))
	}
	child.ID = fmt.Sprintf("%s-%s-%d", parent.ID, choice.name, rng.Int63())
	return child, choice.name, nil
}

func (g *HeuristicVariantGenerator) demoCount() int {
	if g.KDemos <= 0 {
		return 3
	}
	return g.KDemos
}
