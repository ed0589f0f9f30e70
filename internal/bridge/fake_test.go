package bridge

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// published is one message seen by fakeTransport.
type published struct {
	topic   string
	payload string
	qos     byte
}

// fakeTransport is an in-memory Transport. Connect fires the connect
// callback synchronously.
type fakeTransport struct {
	mu             sync.Mutex
	connected      bool
	connectErr     error
	connectDelay   time.Duration
	connectCalls   int
	subscribeCalls int
	subs           map[string]mqtt.MessageHandler
	publishErr     map[string]error
	published      []published
	onConnect      func()
	onDisconnect   func(error)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeTransport) Connect(time.Duration) error {
	f.mu.Lock()
	f.connectCalls++
	delay, err := f.connectDelay, f.connectErr
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.connected = true
	cb := f.onConnect
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return mqtt.ErrNotConnected
	}
	f.subscribeCalls++
	f.subs[topic] = handler
	return nil
}

func (f *fakeTransport) Publish(topic string, payload []byte, qos byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return mqtt.ErrNotConnected
	}
	if err := f.publishErr[topic]; err != nil {
		return err
	}
	f.published = append(f.published, published{topic: topic, payload: string(payload), qos: qos})
	return nil
}

func (f *fakeTransport) SetOnConnect(cb func()) {
	f.mu.Lock()
	f.onConnect = cb
	f.mu.Unlock()
}

func (f *fakeTransport) SetOnDisconnect(cb func(error)) {
	f.mu.Lock()
	f.onDisconnect = cb
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

// deliver hands a broker message to the subscribed handler.
func (f *fakeTransport) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	h, ok := f.subs[topic]
	f.mu.Unlock()
	if !ok {
		t.Errorf("deliver: no subscription for %s", topic)
		return
	}
	if err := h(topic, []byte(payload)); err != nil {
		t.Errorf("deliver(%s) handler error = %v", topic, err)
	}
}

// drop simulates a lost connection.
func (f *fakeTransport) drop() {
	f.mu.Lock()
	f.connected = false
	f.subs = make(map[string]mqtt.MessageHandler)
	cb := f.onDisconnect
	f.mu.Unlock()
	if cb != nil {
		cb(errors.New("connection reset"))
	}
}

// reconnect simulates the client's automatic reconnect.
func (f *fakeTransport) reconnect() {
	f.mu.Lock()
	f.connected = true
	cb := f.onConnect
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (f *fakeTransport) counts() (connects, subscribes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls, f.subscribeCalls
}

func (f *fakeTransport) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

func (f *fakeTransport) subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[topic]
	return ok
}

var testTopics = mqtt.Topics{Namespace: "esp32"}

func newTestCache() *telemetry.Cache {
	return telemetry.NewCache(testTopics, telemetry.Options{StalenessThreshold: 30 * time.Second})
}

// fakeRecorder captures Recorder events.
type fakeRecorder struct {
	mu        sync.Mutex
	connected []bool
	awaits    []bool
	publishes map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{publishes: make(map[string]int)}
}

func (r *fakeRecorder) SetConnected(c bool) {
	r.mu.Lock()
	r.connected = append(r.connected, c)
	r.mu.Unlock()
}

func (r *fakeRecorder) ObserveAwait(_ telemetry.Channel, timedOut bool, _ time.Duration) {
	r.mu.Lock()
	r.awaits = append(r.awaits, timedOut)
	r.mu.Unlock()
}

func (r *fakeRecorder) ObservePublish(kind string, ok bool) {
	r.mu.Lock()
	key := kind + "/fail"
	if ok {
		key = kind + "/ok"
	}
	r.publishes[key]++
	r.mu.Unlock()
}
