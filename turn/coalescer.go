package turn

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// coalescer batches text deltas before handing them to emit, adapting the
// AIMD token-bucket pattern from the teacher's AdaptiveRateLimiter: a
// golang.org/x/time/rate.Limiter paces the time-triggered flush, while a
// length-triggered flush bypasses the limiter entirely so one oversized delta
// is never held hostage by the pacing window (§4.6 "Emit buffer to
// emit_text...").
type coalescer struct {
	mu       sync.Mutex
	buf      strings.Builder
	maxChars int
	limiter  *rate.Limiter
	emit     func(string)
}

// newCoalescer constructs a coalescer flushing at most once per interval
// (time trigger) or immediately whenever the buffer reaches maxChars (length
// trigger). A non-positive interval or maxChars falls back to the §4.6
// defaults.
func newCoalescer(maxChars int, interval time.Duration, emit func(string)) *coalescer {
	if maxChars <= 0 {
		maxChars = defaultMaxBatchChars
	}
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &coalescer{
		maxChars: maxChars,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		emit:     emit,
	}
}

// Append adds s to the buffer, flushing immediately if the buffer has
// reached maxChars, or if the pacing limiter currently has a token
// available (time since the last limiter-paced flush has reached the
// configured interval; length-triggered and forced flushes do not consume
// the token).
func (c *coalescer) Append(s string) {
	if s == "" {
		return
	}
	c.mu.Lock()
	c.buf.WriteString(s)
	lengthTriggered := c.buf.Len() >= c.maxChars
	c.mu.Unlock()

	if lengthTriggered {
		c.flush()
		return
	}
	if c.limiter.Allow() {
		c.flush()
	}
}

// Flush forces a flush of any buffered text regardless of the pacing
// limiter, used for the tail flush at finalization so the concatenation of
// emitted text equals the full content byte-for-byte (§8).
func (c *coalescer) Flush() {
	c.flush()
}

func (c *coalescer) flush() {
	c.mu.Lock()
	if c.buf.Len() == 0 {
		c.mu.Unlock()
		return
	}
	text := c.buf.String()
	c.buf.Reset()
	c.mu.Unlock()
	c.emit(text)
}
