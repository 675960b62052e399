package archive

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diogenesoftoronto/chrysalis-forge/signature"
)

func variantSig(t *testing.T) signature.Signature {
	t.Helper()
	sig, err := signature.New("classify", []signature.Field{{Name: "ticket"}}, []signature.Field{{Name: "label"}})
	require.NoError(t, err)
	return sig
}

func TestHeuristicVariantGeneratorNeverInvokesSend(t *testing.T) {
	sig := variantSig(t)
	parent, err := signature.NewModule("parent", sig, signature.Predict, "Classify.", nil, nil)
	require.NoError(t, err)

	trainset := []signature.Example{
		{Inputs: map[string]any{"ticket": "x"}, Expected: map[string]any{"label": "billing"}},
	}
	gen := &HeuristicVariantGenerator{Trainset: trainset, Rand: rand.New(rand.NewSource(1))}

	// GenerateVariant's Sender parameter is nil here; a generator that tried
	// to call it would panic, so a clean return demonstrates it never does.
	child, explanation, err := gen.GenerateVariant(context.Background(), parent, trainset, nil)
	require.NoError(t, err)
	require.NotEmpty(t, explanation)
	require.NotEqual(t, parent.ID, child.ID)
}

func TestHeuristicVariantGeneratorProducesDistinctChildIDs(t *testing.T) {
	sig := variantSig(t)
	parent, err := signature.NewModule("parent", sig, signature.Predict, "Classify.", nil, nil)
	require.NoError(t, err)
	trainset := []signature.Example{
		{Inputs: map[string]any{"ticket": "x"}, Expected: map[string]any{"label": "billing"}},
	}

	gen := &HeuristicVariantGenerator{Trainset: trainset, Rand: rand.New(rand.NewSource(5))}
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		child, _, err := gen.GenerateVariant(context.Background(), parent, trainset, nil)
		require.NoError(t, err)
		require.False(t, seen[child.ID], "child IDs must be unique across calls")
		seen[child.ID] = true
	}
}

func TestHeuristicVariantGeneratorDemoCountDefault(t *testing.T) {
	gen := &HeuristicVariantGenerator{}
	require.Equal(t, 3, gen.demoCount())

	gen2 := &HeuristicVariantGenerator{KDemos: 2}
	require.Equal(t, 2, gen2.demoCount())
}

func TestHeuristicVariantGeneratorResampleDemosFailsWithoutTrainset(t *testing.T) {
	sig := variantSig(t)
	parent, err := signature.NewModule("parent", sig, signature.Predict, "Classify.", nil, nil)
	require.NoError(t, err)

	// Force the resample-demos branch deterministically by only offering that
	// mutation's index via a rand source that always selects it: seed chosen
	// so rng.Intn(4) == 3 on first call is not guaranteed across Go versions,
	// so instead we drive it through many iterations and require at least one
	// attempt surfaces the expected error when both trainsets are empty.
	gen := &HeuristicVariantGenerator{Rand: rand.New(rand.NewSource(2))}
	sawResampleError := false
	for i := 0; i < 50; i++ {
		_, _, err := gen.GenerateVariant(context.Background(), parent, nil, nil)
		if err != nil {
			sawResampleError = true
			break
		}
	}
	require.True(t, sawResampleError, "resample-demos with no trainset available must eventually surface an error")
}
