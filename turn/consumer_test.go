package turn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noopCoalescer() *coalescer {
	return newCoalescer(1<<20, 0, func(string) {})
}

func TestConsumerHandleDataAccumulatesContent(t *testing.T) {
	c := newConsumer(noopCoalescer())
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"content":"Hel"}}]}`))
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"content":"lo"}}]}`))
	require.Equal(t, "Hello", c.content.String())
}

func TestConsumerHandleDataRejectsInvalidJSON(t *testing.T) {
	c := newConsumer(noopCoalescer())
	err := c.handleData("not json")
	require.Error(t, err)
}

func TestConsumerHandleDataCapturesUsageFromLastChunk(t *testing.T) {
	c := newConsumer(noopCoalescer())
	require.NoError(t, c.handleData(`{"choices":[{"delta":{}}]}`))
	require.NoError(t, c.handleData(`{"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	require.Equal(t, Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, c.usage)
}

func TestConsumerAccumulatesToolCallArgumentsByIndex(t *testing.T) {
	c := newConsumer(noopCoalescer())
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"search","arguments":"{\"q\":"}}]}}]}`))
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"go\"}"}}]}}]}`))

	calls := c.orderedToolCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, "search", calls[0].Function.Name)
	require.Equal(t, `{"q":"go"}`, calls[0].Function.Arguments)
}

func TestConsumerOrdersToolCallsByAscendingIndexRegardlessOfArrivalOrder(t *testing.T) {
	c := newConsumer(noopCoalescer())
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"tool_calls":[{"index":2,"id":"c2","function":{"name":"third"}}]}}]}`))
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"c0","function":{"name":"first"}}]}}]}`))
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"tool_calls":[{"index":1,"id":"c1","function":{"name":"second"}}]}}]}`))

	calls := c.orderedToolCalls()
	require.Len(t, calls, 3)
	require.Equal(t, []string{"first", "second", "third"}, []string{calls[0].Function.Name, calls[1].Function.Name, calls[2].Function.Name})
}

func TestConsumerHandleDataIgnoresEmptyContentDelta(t *testing.T) {
	c := newConsumer(noopCoalescer())
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"content":""}}]}`))
	require.Equal(t, "", c.content.String())
}

func TestConsumerToolCallMultipleDistinctIndices(t *testing.T) {
	c := newConsumer(noopCoalescer())
	require.NoError(t, c.handleData(`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"a","function":{"name":"fn_a","arguments":"1"}},{"index":1,"id":"b","function":{"name":"fn_b","arguments":"2"}}]}}]}`))

	calls := c.orderedToolCalls()
	require.Len(t, calls, 2)
	require.Equal(t, "fn_a", calls[0].Function.Name)
	require.Equal(t, "fn_b", calls[1].Function.Name)
}
