package turn

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/diogenesoftoronto/chrysalis-forge/forgeerr"
	"github.com/diogenesoftoronto/chrysalis-forge/telemetry"
)

// Config configures one turn invocation. Only Endpoint, APIKey, and
// PayloadBuilder are required; the rest fall back to the §4.6 defaults.
type Config struct {
	APIKey         string
	Endpoint       string
	Headers        map[string]string
	PayloadBuilder PayloadBuilder
	ToolRunner     ToolRunner
	EmitText       func(text string)
	EmitTool       func(ToolLifecycleEvent)
	IsCancelled    func() bool
	Timeout        time.Duration
	FlushInterval  time.Duration
	MaxBatchChars  int
	HTTPClient     *http.Client
	Logger         telemetry.Logger
	Model          string
}

// pollInterval bounds how often Run re-checks Config.IsCancelled while idle
// on the event channel, so cancellation is observed promptly even during a
// quiet period in the stream (§4.6 "Cancellation... polled at each consumer
// tick").
const pollInterval = 50 * time.Millisecond

// Run drives one assistant turn end to end: Connecting (open the HTTPS
// request), Streaming (reader/consumer goroutines over the SSE body), and
// Finalizing (tool dispatch), terminating in Done, Failed, or Cancelled.
func Run(ctx context.Context, cfg Config) (Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	emitText := cfg.EmitText
	if emitText == nil {
		emitText = func(string) {}
	}
	isCancelled := cfg.IsCancelled
	if isCancelled == nil {
		isCancelled = func() bool { return false }
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// Connecting.
	logger.Debug(ctx, "turn connecting", "endpoint", cfg.Endpoint)
	body, err := cfg.PayloadBuilder()
	if err != nil {
		return Result{}, err
	}
	req, err := buildRequest(cfg.Endpoint, cfg.APIKey, cfg.Headers, body)
	if err != nil {
		return Result{}, err
	}
	req = req.WithContext(runCtx)

	resp, err := client.Do(req)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return Result{}, &forgeerr.Timeout{After: cfg.Timeout.String()}
		}
		return Result{}, forgeerr.NewStreamError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := readAll(resp.Body, 16*1024)
		return Result{}, forgeerr.NewHTTPError(resp.StatusCode, extractErrorMessage(excerpt), cfg.Model)
	}

	// Streaming.
	logger.Debug(ctx, "turn streaming")
	coal := newCoalescer(cfg.MaxBatchChars, cfg.FlushInterval, emitText)
	cons := newConsumer(coal)

	events := make(chan streamEvent, 64)
	go runReader(resp.Body, events)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var streamErr error
loop:
	for {
		select {
		case <-runCtx.Done():
			coal.Flush()
			if runCtx.Err() == context.DeadlineExceeded {
				return Result{}, &forgeerr.Timeout{After: cfg.Timeout.String()}
			}
			return Result{}, &forgeerr.Cancelled{}

		case <-ticker.C:
			if isCancelled() {
				coal.Flush()
				return Result{}, &forgeerr.Cancelled{}
			}

		case ev, ok := <-events:
			if !ok {
				break loop
			}
			switch ev.kind {
			case eventData:
				if err := cons.handleData(ev.line); err != nil {
					streamErr = err
					break loop
				}
			case eventDone:
				// Per §4.6 "On Done, drain until Eof, then finalize" — keep
				// reading (tolerating any trailing bytes) until the reader
				// closes the channel.
			case eventEOF:
				break loop
			case eventError:
				streamErr = ev.err
				break loop
			}
		}
	}

	coal.Flush()

	if streamErr != nil {
		return Result{}, forgeerr.NewStreamError(streamErr)
	}

	// Finalizing: tool dispatch in ascending index order.
	logger.Debug(ctx, "turn finalizing", "tool_calls", len(cons.toolOrder))
	toolCalls := cons.orderedToolCalls()
	toolResults := make([]Message, 0, len(toolCalls))
	emitTool := cfg.EmitTool
	if emitTool == nil {
		emitTool = func(ToolLifecycleEvent) {}
	}
	for _, tc := range toolCalls {
		output, _ := dispatchTool(runCtx, cfg.ToolRunner, tc, emitTool, logger)
		toolResults = append(toolResults, Message{
			Role:       "tool",
			Content:    strPtr(output),
			Name:       tc.Function.Name,
			ToolCallID: tc.ID,
		})
	}

	content := cons.content.String()
	var contentPtr *string
	if content != "" || len(toolCalls) == 0 {
		contentPtr = &content
	}

	assistant := Message{
		Role:      "assistant",
		Content:   contentPtr,
		ToolCalls: toolCalls,
	}

	logger.Debug(ctx, "turn done", "content_len", len(content), "tool_calls", len(toolCalls))
	return Result{Assistant: assistant, ToolResults: toolResults, Usage: cons.usage}, nil
}

// dispatchTool runs one accumulated tool call synchronously, emitting
// Start/Progress/Finish lifecycle events (§4.6 "Tool dispatch"). A malformed
// arguments JSON is tolerated: the call is still invoked, with {} in its
// place.
func dispatchTool(ctx context.Context, runner ToolRunner, tc ToolCall, emit func(ToolLifecycleEvent), logger telemetry.Logger) (string, bool) {
	argsRaw := tc.Function.Arguments
	var args json.RawMessage
	if json.Valid([]byte(argsRaw)) {
		args = json.RawMessage(argsRaw)
	} else {
		logger.Warn(ctx, "tool call arguments are not valid JSON, invoking with {}", "tool", tc.Function.Name, "id", tc.ID)
		args = json.RawMessage("{}")
	}

	emit(ToolLifecycleEvent{Phase: ToolStart, ID: tc.ID, Name: tc.Function.Name, ArgsRaw: argsRaw})
	emit(ToolLifecycleEvent{Phase: ToolProgress, ID: tc.ID, Name: tc.Function.Name})

	if runner == nil {
		msg := "no tool runner configured"
		emit(ToolLifecycleEvent{Phase: ToolFinish, ID: tc.ID, Name: tc.Function.Name, Output: msg, Error: true})
		return msg, true
	}

	output, err := runner.Run(ctx, tc.Function.Name, args)
	if err != nil {
		msg := err.Error()
		emit(ToolLifecycleEvent{Phase: ToolFinish, ID: tc.ID, Name: tc.Function.Name, Output: msg, Error: true})
		return msg, true
	}
	emit(ToolLifecycleEvent{Phase: ToolFinish, ID: tc.ID, Name: tc.Function.Name, Output: output})
	return output, false
}

func strPtr(s string) *string { return &s }
