package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

func newTestCorrelator(ft *fakeTransport) (*Correlator, *telemetry.Cache) {
	cache := newTestCache()
	conn := NewConnectionManager(ft, cache, ConnectionOptions{})
	return NewCorrelator(conn, cache), cache
}

func TestAwaitValue_TimeoutOnColdCache(t *testing.T) {
	ft := newFakeTransport()
	c, _ := newTestCorrelator(ft)
	rec := newFakeRecorder()
	c.SetRecorder(rec)

	res := c.AwaitValue(context.Background(), telemetry.ChannelSensors, 100*time.Millisecond)

	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if res.Message != nil {
		t.Errorf("Message = %+v, want nil", res.Message)
	}
	if res.Waited < 100*time.Millisecond || res.Waited > time.Second {
		t.Errorf("Waited = %v, want about 100ms", res.Waited)
	}
	if connects, _ := ft.counts(); connects != 1 {
		t.Errorf("connect calls = %d, want 1", connects)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.awaits) != 1 || !rec.awaits[0] {
		t.Errorf("recorded awaits = %v, want [true]", rec.awaits)
	}
}

func TestAwaitValue_FreshArrival(t *testing.T) {
	ft := newFakeTransport()
	c, _ := newTestCorrelator(ft)

	timer := time.AfterFunc(50*time.Millisecond, func() {
		ft.deliver(t, "esp32/sensores", `{"temp":24.5,"hum":55}`)
	})
	defer timer.Stop()

	res := c.AwaitValue(context.Background(), telemetry.ChannelSensors, time.Second)

	if res.TimedOut {
		t.Fatal("TimedOut = true, want fresh value")
	}
	reading, ok := res.Message.Value.(telemetry.SensorReading)
	if !ok || reading.Temp != 24.5 {
		t.Errorf("Message value = %+v, want temp 24.5", res.Message.Value)
	}
	if res.Waited >= time.Second {
		t.Errorf("Waited = %v, want well under the deadline", res.Waited)
	}
}

func TestAwaitValue_WarmCacheStillWaits(t *testing.T) {
	ft := newFakeTransport()
	c, cache := newTestCorrelator(ft)
	c.conn.EnsureConnected(context.Background())
	ft.deliver(t, "esp32/sensores", `{"temp":20,"hum":40}`)
	old := cache.Get(telemetry.ChannelSensors)

	res := c.AwaitValue(context.Background(), telemetry.ChannelSensors, 80*time.Millisecond)

	if !res.TimedOut {
		t.Error("TimedOut = false for a value cached before the call")
	}
	if res.Message != old {
		t.Errorf("Message = %+v, want the cached value", res.Message)
	}
}

func TestAwaitValue_OtherChannelDoesNotSatisfy(t *testing.T) {
	ft := newFakeTransport()
	c, _ := newTestCorrelator(ft)

	timer := time.AfterFunc(20*time.Millisecond, func() {
		ft.deliver(t, "esp32/status", "online")
	})
	defer timer.Stop()

	res := c.AwaitValue(context.Background(), telemetry.ChannelSensors, 100*time.Millisecond)
	if !res.TimedOut {
		t.Error("TimedOut = false after an update on another channel")
	}
}

func TestAwaitValue_CancelledContext(t *testing.T) {
	ft := newFakeTransport()
	c, _ := newTestCorrelator(ft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	res := c.AwaitValue(ctx, telemetry.ChannelSensors, 5*time.Second)
	if !res.TimedOut {
		t.Error("TimedOut = false for a cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Error("AwaitValue() ignored the cancelled context")
	}
}

func TestAwaitValue_ConnectFailureFallsBackToCache(t *testing.T) {
	ft := newFakeTransport()
	ft.connectErr = errors.New("connection refused")
	c, cache := newTestCorrelator(ft)

	// Data cached from an earlier connection.
	_ = cache.HandleMessage("esp32/sensores", []byte(`{"temp":19,"hum":70}`))

	res := c.AwaitValue(context.Background(), telemetry.ChannelSensors, 50*time.Millisecond)
	if !res.TimedOut || res.Message == nil {
		t.Errorf("result = %+v, want timed out with cached value", res)
	}
	if c.conn.State() != StateError {
		t.Errorf("State() = %v, want error", c.conn.State())
	}
}

func TestAwaitValue_ConcurrentWaitersIndependent(t *testing.T) {
	ft := newFakeTransport()
	c, _ := newTestCorrelator(ft)
	c.conn.EnsureConnected(context.Background())

	var wg sync.WaitGroup
	results := make([]AwaitResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.AwaitValue(context.Background(), telemetry.ChannelSensors, time.Second)
		}(i)
	}

	time.Sleep(30 * time.Millisecond)
	ft.deliver(t, "esp32/sensores", `{"temp":22,"hum":50}`)
	wg.Wait()

	for i, r := range results {
		if r.TimedOut {
			t.Errorf("waiter %d timed out", i)
		}
	}
}
