package turn

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// chunkDelta is the chat-completions SSE delta frame shape (§6): each
// `data:` line decodes to one of these.
type chunkDelta struct {
	Choices []struct {
		Delta struct {
			Content   *string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// toolCallAccum accumulates one tool call's id, name, and argument fragments
// across deltas, keyed by the provider's streaming index (§4.6 "Consumer").
type toolCallAccum struct {
	id   string
	name string
	args strings.Builder
}

// consumer holds the turn's mutable accumulation state: the content buffer
// (both the coalesced emit path and the final full-content record), the
// per-index tool-call map, and the most recently observed usage block.
type consumer struct {
	coalescer *coalescer
	content   strings.Builder
	toolCalls map[int]*toolCallAccum
	toolOrder []int
	usage     Usage
}

func newConsumer(c *coalescer) *consumer {
	return &consumer{coalescer: c, toolCalls: make(map[int]*toolCallAccum)}
}

// handleData parses one SSE data line and folds it into the accumulation
// state, returning an error when the line is not valid JSON (§7
// StreamError: "mid-stream read or JSON-parse failure after a successful
// connect").
func (c *consumer) handleData(raw string) error {
	var chunk chunkDelta
	if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
		return fmt.Errorf("decode delta chunk: %w", err)
	}
	if chunk.Usage != nil {
		c.usage = *chunk.Usage
	}
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			text := *choice.Delta.Content
			c.content.WriteString(text)
			c.coalescer.Append(text)
		}
		for _, tc := range choice.Delta.ToolCalls {
			acc, ok := c.toolCalls[tc.Index]
			if !ok {
				acc = &toolCallAccum{}
				c.toolCalls[tc.Index] = acc
				c.toolOrder = append(c.toolOrder, tc.Index)
			}
			if acc.id == "" && tc.ID != "" {
				acc.id = tc.ID
			}
			if acc.name == "" && tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				acc.args.WriteString(tc.Function.Arguments)
			}
		}
	}
	return nil
}

// orderedToolCalls returns the accumulated tool calls in ascending index
// order (§4.6 "Tool dispatch... in ascending index order").
func (c *consumer) orderedToolCalls() []ToolCall {
	indices := append([]int(nil), c.toolOrder...)
	sort.Ints(indices)
	calls := make([]ToolCall, 0, len(indices))
	for _, idx := range indices {
		acc := c.toolCalls[idx]
		calls = append(calls, ToolCall{
			ID:   acc.id,
			Type: "function",
			Function: ToolCallFunction{
				Name:      acc.name,
				Arguments: acc.args.String(),
			},
		})
	}
	return calls
}
