// forge-demo wires a seed module through the optimizer into an archive, then
// dispatches a priority through the selector and drives one streaming turn
// against a canned SSE transport — enough to exercise every package without
// a live model provider.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/diogenesoftoronto/chrysalis-forge/archive"
	"github.com/diogenesoftoronto/chrysalis-forge/config"
	"github.com/diogenesoftoronto/chrysalis-forge/runresult"
	"github.com/diogenesoftoronto/chrysalis-forge/selector"
	"github.com/diogenesoftoronto/chrysalis-forge/signature"
	"github.com/diogenesoftoronto/chrysalis-forge/turn"
)

func main() {
	ctx := context.Background()

	sig, err := signature.New("classify_ticket",
		[]signature.Field{{Name: "ticket"}},
		[]signature.Field{{Name: "label"}, {Name: "_reasoning", Optional: true}},
	)
	if err != nil {
		panic(err)
	}

	seed, err := signature.NewModule("", sig, signature.Predict, "Classify the support ticket.", nil, nil)
	if err != nil {
		panic(err)
	}

	trainset := []signature.Example{
		{Inputs: map[string]any{"ticket": "my invoice is wrong"}, Expected: map[string]any{"label": "billing"}},
		{Inputs: map[string]any{"ticket": "app crashes on launch"}, Expected: map[string]any{"label": "bug"}},
		{Inputs: map[string]any{"ticket": "how do I reset my password"}, Expected: map[string]any{"label": "account"}},
		{Inputs: map[string]any{"ticket": "feature request: dark mode"}, Expected: map[string]any{"label": "feature"}},
	}

	prices := runresult.PriceTable{
		"demo-model": {InputPerMTokenUSD: 0.5, OutputPerMTokenUSD: 1.5},
	}

	send := func(ctx context.Context, prompt signature.Prompt) (bool, string, runresult.RunMeta, error) {
		raw := `{"label": "billing"}`
		meta := runresult.RunMeta{Model: "demo-model", PromptTokens: 120, CompletionTokens: 20, ElapsedMS: 350, FinishReason: "stop"}
		return true, raw, meta, nil
	}

	cfg := config.Load("")

	opt := &archive.Optimizer{
		Prices:    prices,
		Generator: &archive.HeuristicVariantGenerator{Trainset: trainset, KDemos: 2},
	}
	arc, err := opt.Run(ctx, seed, signature.Ctx{System: "You triage support tickets."}, trainset, send, archive.Params{
		KDemos:          2,
		NPerGen:         2,
		Iterations:      3,
		UseMeta:         true,
		MaxCloudSize:    cfg.MaxCloudSize,
		ExplorationRate: cfg.ExplorationRate,
	})
	if err != nil {
		panic(err)
	}

	snap := arc.Snapshot()
	fmt.Printf("archive %q: %d bins, %d cloud points\n", snap.ID, len(snap.Bins), len(snap.Cloud))

	chosen, err := selector.Select(ctx, snap, "fast and cheap", nil, nil)
	if err != nil {
		panic(err)
	}
	fmt.Printf("selected module %q (strategy=%s): %q\n", chosen.ID, chosen.Strategy, chosen.Instructions)

	prompt, err := signature.RenderPrompt(chosen, signature.Ctx{}, map[string]any{"ticket": "can't log in"})
	if err != nil {
		panic(err)
	}
	fmt.Println("--- rendered prompt ---")
	fmt.Println(prompt.Text)

	runStubTurn(ctx)
}

// runStubTurn drives one turn against an httptest server that replays a
// fixed SSE transcript, exercising the reader/consumer split and tool
// dispatch end to end without a real provider.
func runStubTurn(ctx context.Context) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		lines := []string{
			`data: {"choices":[{"delta":{"content":"Checking "}}]}`,
			`data: {"choices":[{"delta":{"content":"your account..."}}]}`,
			`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup_account","arguments":"{\"user\":"}}]}}]}`,
			`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"alice\"}"}}]}}]}`,
			`data: {"choices":[{"delta":{}}],"usage":{"prompt_tokens":80,"completion_tokens":12,"total_tokens":92}}`,
			`data: [DONE]`,
		}
		for _, line := range lines {
			io.WriteString(w, line+"\n\n")
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	toolRunner := turn.ToolRunnerFunc(func(ctx context.Context, name string, args json.RawMessage) (string, error) {
		return fmt.Sprintf("%s invoked with %s", name, string(args)), nil
	})

	var emitted string
	result, err := turn.Run(ctx, turn.Config{
		APIKey:   "demo-key",
		Endpoint: srv.URL,
		Model:    "demo-model",
		PayloadBuilder: func() ([]byte, error) {
			return json.Marshal(map[string]any{"model": "demo-model", "stream": true})
		},
		ToolRunner: toolRunner,
		EmitText:   func(text string) { emitted += text },
		Timeout:    5 * time.Second,
	})
	if err != nil {
		panic(err)
	}

	fmt.Println("--- turn result ---")
	fmt.Println("emitted text:", emitted)
	if result.Assistant.Content != nil {
		fmt.Println("final content:", *result.Assistant.Content)
	}
	for _, tr := range result.ToolResults {
		fmt.Printf("tool result for %s: %s\n", tr.ToolCallID, *tr.Content)
	}
	fmt.Printf("usage: %+v\n", result.Usage)
}
