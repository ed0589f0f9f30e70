package bridge

import (
	"context"
	"time"

	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// AwaitResult is the outcome of Correlator.AwaitValue.
type AwaitResult struct {
	// Message is the fresh value, or on timeout the cached one (nil when
	// nothing was ever received).
	Message *telemetry.Message

	// TimedOut is true when no new value arrived before the deadline.
	TimedOut bool

	// Waited is how long the call took.
	Waited time.Duration
}

// Correlator pairs a request with the next telemetry value on a channel.
// The device publishes on its own schedule, so "the response" is simply the
// first value stored after the request began.
type Correlator struct {
	conn     *ConnectionManager
	cache    *telemetry.Cache
	recorder Recorder
}

// NewCorrelator creates a correlator reading through cache.
func NewCorrelator(conn *ConnectionManager, cache *telemetry.Cache) *Correlator {
	return &Correlator{
		conn:     conn,
		cache:    cache,
		recorder: noopRecorder{},
	}
}

// SetRecorder sets the metrics recorder for the correlator.
func (c *Correlator) SetRecorder(recorder Recorder) {
	c.recorder = recorder
}

// AwaitValue waits up to deadline for a value on ch that arrives after the
// call began. It connects first if needed.
//
// A done ctx is handled like an expired deadline: the cached value is
// returned with TimedOut set. Concurrent callers wait independently.
func (c *Correlator) AwaitValue(ctx context.Context, ch telemetry.Channel, deadline time.Duration) AwaitResult {
	start := time.Now()
	baseline := c.cache.Seq()

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	c.conn.EnsureConnected(ctx)

	for {
		// Watch before Get so an update between the two is not missed.
		notify := c.cache.Watch(ch)
		if msg := c.cache.Get(ch); msg != nil && msg.Seq > baseline {
			return c.finish(ch, msg, false, start)
		}

		select {
		case <-notify:
		case <-ctx.Done():
			return c.finish(ch, c.cache.Get(ch), true, start)
		}
	}
}

func (c *Correlator) finish(ch telemetry.Channel, msg *telemetry.Message, timedOut bool, start time.Time) AwaitResult {
	waited := time.Since(start)
	c.recorder.ObserveAwait(ch, timedOut, waited)
	return AwaitResult{Message: msg, TimedOut: timedOut, Waited: waited}
}
