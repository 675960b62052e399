package runresult

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreMatchNoPenalty(t *testing.T) {
	rr := RunResult{
		Outputs: map[string]any{"label": "billing"},
		Meta:    RunMeta{Model: "free", ElapsedMS: 0},
	}
	expected := map[string]any{"label": "billing"}
	score := Score(expected, rr, PriceTable{})
	require.Equal(t, accuracyOnMatch, score)
}

func TestScoreMismatchFloorsAtScoreFloor(t *testing.T) {
	rr := RunResult{
		Outputs: map[string]any{"label": "bug"},
		Meta:    RunMeta{Model: "free", ElapsedMS: 0},
	}
	expected := map[string]any{"label": "billing"}
	score := Score(expected, rr, PriceTable{})
	require.Equal(t, scoreFloor, score)
}

func TestScoreLatencyPenaltyCapsAtMax(t *testing.T) {
	rr := RunResult{
		Outputs: map[string]any{"label": "billing"},
		Meta:    RunMeta{Model: "free", ElapsedMS: 100_000},
	}
	expected := map[string]any{"label": "billing"}
	score := Score(expected, rr, PriceTable{})
	// accuracy(10) - maxLatencyPenalty(2) - cost(0) == 8, well above the floor.
	require.InDelta(t, accuracyOnMatch-maxLatencyPenalty, score, 1e-9)
}

func TestScoreCostPenalty(t *testing.T) {
	prices := PriceTable{"m": {InputPerMTokenUSD: 1000}}
	rr := RunResult{
		Outputs: map[string]any{"label": "billing"},
		Meta:    RunMeta{Model: "m", PromptTokens: 1000, ElapsedMS: 0},
	}
	expected := map[string]any{"label": "billing"}
	score := Score(expected, rr, prices)
	// cost = 1000/1e6*1000 = 1.0; costPenalty = 1000*1.0 = 1000, floored.
	require.Equal(t, scoreFloor, score)
}

func TestScoreTreatsMissingOptionalAsMatchingExplicitNil(t *testing.T) {
	rr := RunResult{
		Outputs: map[string]any{"label": "billing", "_reasoning": nil},
		Meta:    RunMeta{Model: "free"},
	}
	expected := map[string]any{"label": "billing"}
	require.Equal(t, accuracyOnMatch, Score(expected, rr, PriceTable{}))
}

func TestRunMetaTotalTokens(t *testing.T) {
	m := RunMeta{PromptTokens: 10, CompletionTokens: 5}
	require.Equal(t, 15, m.TotalTokens())
}
