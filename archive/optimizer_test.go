package archive

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diogenesoftoronto/chrysalis-forge/phenotype"
	"github.com/diogenesoftoronto/chrysalis-forge/runresult"
	"github.com/diogenesoftoronto/chrysalis-forge/signature"
)

func optimizerSig(t *testing.T) signature.Signature {
	t.Helper()
	sig, err := signature.New("classify", []signature.Field{{Name: "ticket"}}, []signature.Field{{Name: "label"}})
	require.NoError(t, err)
	return sig
}

func optimizerTrainset() []signature.Example {
	return []signature.Example{
		{Inputs: map[string]any{"ticket": "invoice wrong"}, Expected: map[string]any{"label": "billing"}},
		{Inputs: map[string]any{"ticket": "crash on launch"}, Expected: map[string]any{"label": "bug"}},
	}
}

func alwaysCorrectSender(model string) Sender {
	return func(_ context.Context, prompt signature.Prompt) (bool, string, runresult.RunMeta, error) {
		label := "billing"
		if strings.Contains(prompt.Text, "crash on launch") {
			label = "bug"
		}
		return true, `{"label": "` + label + `"}`, runresult.RunMeta{Model: model, PromptTokens: 100, CompletionTokens: 10, ElapsedMS: 50}, nil
	}
}

func TestOptimizerRunProducesNonEmptyArchive(t *testing.T) {
	sig := optimizerSig(t)
	seed, err := signature.NewModule("seed", sig, signature.Predict, "Classify the ticket.", nil, nil)
	require.NoError(t, err)

	opt := &Optimizer{
		Prices: runresult.PriceTable{"m": {InputPerMTokenUSD: 1, OutputPerMTokenUSD: 1}},
		Rand:   rand.New(rand.NewSource(42)),
	}
	arc, err := opt.Run(context.Background(), seed, signature.Ctx{}, optimizerTrainset(), alwaysCorrectSender("m"), Params{
		KDemos:       1,
		MaxCloudSize: 100,
	})
	require.NoError(t, err)

	snap := arc.Snapshot()
	require.NotEmpty(t, snap.Cloud)
	require.NotEmpty(t, snap.Bins)
	require.True(t, snap.HasDefault)
}

func TestOptimizerRunRejectsEmptyTrainset(t *testing.T) {
	sig := optimizerSig(t)
	seed, err := signature.NewModule("seed", sig, signature.Predict, "x", nil, nil)
	require.NoError(t, err)

	opt := &Optimizer{Prices: runresult.PriceTable{}}
	_, err = opt.Run(context.Background(), seed, signature.Ctx{}, nil, alwaysCorrectSender("m"), Params{})
	require.Error(t, err)
}

func TestOptimizerRunRejectsTrainsetMissingInput(t *testing.T) {
	sig := optimizerSig(t)
	seed, err := signature.NewModule("seed", sig, signature.Predict, "x", nil, nil)
	require.NoError(t, err)

	opt := &Optimizer{Prices: runresult.PriceTable{}}
	badTrainset := []signature.Example{{Inputs: map[string]any{}, Expected: map[string]any{"label": "billing"}}}
	_, err = opt.Run(context.Background(), seed, signature.Ctx{}, badTrainset, alwaysCorrectSender("m"), Params{})
	require.Error(t, err)
}

func TestOptimizerRunToleratesSenderFailureWithFloorScore(t *testing.T) {
	sig := optimizerSig(t)
	seed, err := signature.NewModule("seed", sig, signature.Predict, "x", nil, nil)
	require.NoError(t, err)

	failingSender := func(_ context.Context, _ signature.Prompt) (bool, string, runresult.RunMeta, error) {
		return false, "", runresult.RunMeta{}, context.DeadlineExceeded
	}

	opt := &Optimizer{Prices: runresult.PriceTable{}, Rand: rand.New(rand.NewSource(1))}
	arc, err := opt.Run(context.Background(), seed, signature.Ctx{}, optimizerTrainset(), failingSender, Params{MaxCloudSize: 10})
	require.NoError(t, err)

	snap := arc.Snapshot()
	for _, elite := range snap.Bins {
		require.Equal(t, 0.1, elite.Score)
	}
}

func TestOptimizerRunEvolutionLoopInvokesGenerator(t *testing.T) {
	sig := optimizerSig(t)
	seed, err := signature.NewModule("seed", sig, signature.Predict, "Classify.", nil, nil)
	require.NoError(t, err)

	trainset := optimizerTrainset()
	gen := &HeuristicVariantGenerator{Trainset: trainset, KDemos: 1, Rand: rand.New(rand.NewSource(7))}

	opt := &Optimizer{
		Prices:    runresult.PriceTable{},
		Generator: gen,
		Rand:      rand.New(rand.NewSource(7)),
	}
	arc, err := opt.Run(context.Background(), seed, signature.Ctx{}, trainset, alwaysCorrectSender("m"), Params{
		KDemos:       1,
		NPerGen:      2,
		Iterations:   2,
		UseMeta:      true,
		MaxCloudSize: 50,
	})
	require.NoError(t, err)

	snap := arc.Snapshot()
	// Four seed mutations evaluated against two trainset items gives an
	// initial cloud of 8; two generations of two children each, evaluated
	// against two trainset items, add up to 8 more.
	require.GreaterOrEqual(t, len(snap.Cloud), 8)
}

func TestPickParentBinExplorationRateFavorsLeastVisited(t *testing.T) {
	arc := New("arc1", optimizerSig(t))
	heavy := phenotype.BinKey{Cost: phenotype.Cheap}
	light := phenotype.BinKey{Cost: phenotype.Premium}

	heavyMod := signature.Module{ID: "heavy"}
	lightMod := signature.Module{ID: "light"}
	for i := 0; i < 9; i++ {
		arc.Update(heavyMod, float64(i), heavy, phenotype.Phenotype{})
	}
	arc.Update(lightMod, 0, light, phenotype.Phenotype{})

	snap := arc.Snapshot()
	rng := rand.New(rand.NewSource(1))
	parent, ok := pickParentBin(snap, rng, 1.0) // always explore
	require.True(t, ok)
	require.Equal(t, "light", parent.ID)
}

func TestPickParentBinZeroExplorationRateSamplesUniformly(t *testing.T) {
	arc := New("arc1", optimizerSig(t))
	key := phenotype.BinKey{Cost: phenotype.Cheap}
	arc.Update(signature.Module{ID: "only"}, 1, key, phenotype.Phenotype{})

	snap := arc.Snapshot()
	rng := rand.New(rand.NewSource(1))
	parent, ok := pickParentBin(snap, rng, 0)
	require.True(t, ok)
	require.Equal(t, "only", parent.ID)
}

func TestPhenotypeOfIsValidAcrossOptimizerRun(t *testing.T) {
	sig := optimizerSig(t)
	seed, err := signature.NewModule("seed", sig, signature.Predict, "x", nil, nil)
	require.NoError(t, err)

	opt := &Optimizer{Prices: runresult.PriceTable{"m": {InputPerMTokenUSD: 1}}}
	arc, err := opt.Run(context.Background(), seed, signature.Ctx{}, optimizerTrainset(), alwaysCorrectSender("m"), Params{MaxCloudSize: 10})
	require.NoError(t, err)

	for _, cp := range arc.Snapshot().Cloud {
		require.True(t, cp.Phenotype.Valid())
	}
}
