package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// DefaultConnectTimeout bounds one dial when ConnectionOptions leaves it unset.
const DefaultConnectTimeout = 5 * time.Second

// State is the connection state seen by the bridge.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns the state name used in logs and health output.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ConnectionOptions configures a ConnectionManager.
type ConnectionOptions struct {
	// ConnectTimeout bounds one dial. Default 5s.
	ConnectTimeout time.Duration

	// QoS is used for subscriptions and publishes.
	QoS byte
}

// ConnectionManager owns the lifecycle of the shared transport.
//
// Connecting is lazy: nothing is dialled until the first EnsureConnected.
// Concurrent callers share one attempt. On every connect event, including
// the transport's own automatic reconnects, the telemetry topics are
// subscribed again with the cache as handler.
//
// Thread Safety: all methods are safe for concurrent use.
type ConnectionManager struct {
	transport Transport
	cache     *telemetry.Cache
	topics    []string
	timeout   time.Duration
	qos       byte

	state atomic.Int32
	group singleflight.Group

	// connGen counts lost connections; subscribedGen is connGen+1 once the
	// current connection has its subscriptions.
	subMu         sync.Mutex
	connGen       uint64
	subscribedGen uint64

	logger   Logger
	recorder Recorder
}

// NewConnectionManager wires transport to cache. It registers the
// transport's connect and disconnect callbacks but does not dial.
func NewConnectionManager(transport Transport, cache *telemetry.Cache, opts ConnectionOptions) *ConnectionManager {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}

	topics := make([]string, 0, len(telemetry.AllChannels))
	for _, ch := range telemetry.AllChannels {
		topics = append(topics, cache.Topic(ch))
	}

	m := &ConnectionManager{
		transport: transport,
		cache:     cache,
		topics:    topics,
		timeout:   opts.ConnectTimeout,
		qos:       opts.QoS,
		logger:    noopLogger{},
		recorder:  noopRecorder{},
	}
	transport.SetOnConnect(m.handleConnect)
	transport.SetOnDisconnect(m.handleDisconnect)
	return m
}

// SetLogger sets the logger for the manager.
func (m *ConnectionManager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetRecorder sets the metrics recorder for the manager.
func (m *ConnectionManager) SetRecorder(recorder Recorder) {
	m.recorder = recorder
}

// State returns the current connection state.
func (m *ConnectionManager) State() State {
	return State(m.state.Load())
}

// IsConnected reports whether the link is up and subscribed.
func (m *ConnectionManager) IsConnected() bool {
	return m.ready()
}

// EnsureConnected makes sure the transport is connected and subscribed.
//
// It returns immediately when already connected. Otherwise it joins (or
// starts) the single in-flight attempt and waits for it, or for ctx to end.
// Failures are logged and reported through the returned state; the caller
// is expected to carry on with cached data.
func (m *ConnectionManager) EnsureConnected(ctx context.Context) State {
	if m.ready() {
		return StateConnected
	}

	ch := m.group.DoChan("connect", func() (any, error) {
		return m.connect(), nil
	})

	select {
	case res := <-ch:
		return res.Val.(State)
	case <-ctx.Done():
		return m.State()
	}
}

// ConnectAsync starts a connection attempt in the background when the link
// is down. It never blocks.
func (m *ConnectionManager) ConnectAsync() {
	if m.ready() {
		return
	}
	m.group.DoChan("connect", func() (any, error) {
		return m.connect(), nil
	})
}

// Publish sends payload to topic with the configured QoS, not retained.
// It returns ErrNotConnected without touching the transport when the link
// is down. There is no retry.
func (m *ConnectionManager) Publish(topic string, payload []byte) error {
	if m.State() != StateConnected || !m.transport.IsConnected() {
		return ErrNotConnected
	}
	if err := m.transport.Publish(topic, payload, m.qos, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects the transport.
func (m *ConnectionManager) Close() error {
	err := m.transport.Close()
	m.setState(StateDisconnected)
	return err
}

func (m *ConnectionManager) ready() bool {
	if m.State() != StateConnected || !m.transport.IsConnected() {
		return false
	}
	m.subMu.Lock()
	defer m.subMu.Unlock()
	return m.subscribedGen == m.connGen+1
}

// connect runs inside the singleflight group.
func (m *ConnectionManager) connect() State {
	if m.ready() {
		return StateConnected
	}

	m.setState(StateConnecting)
	m.logger.Info("connecting to MQTT broker", "timeout", m.timeout)

	if err := m.transport.Connect(m.timeout); err != nil {
		m.logger.Warn("MQTT connect failed", "error", err)
		m.setState(StateError)
		return StateError
	}

	if err := m.subscribe(); err != nil {
		m.logger.Warn("MQTT subscribe failed", "error", err)
		m.setState(StateError)
		return StateError
	}

	m.setState(StateConnected)
	return StateConnected
}

// subscribe issues the telemetry subscriptions once per connection.
func (m *ConnectionManager) subscribe() error {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if m.subscribedGen == m.connGen+1 {
		return nil
	}
	for _, topic := range m.topics {
		if err := m.transport.Subscribe(topic, m.qos, m.cache.HandleMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	m.subscribedGen = m.connGen + 1
	m.logger.Debug("telemetry subscriptions active", "topics", m.topics)
	return nil
}

// handleConnect runs on every connect event from the transport.
func (m *ConnectionManager) handleConnect() {
	if err := m.subscribe(); err != nil {
		m.logger.Warn("resubscribe after connect failed", "error", err)
		m.setState(StateError)
		return
	}
	if m.State() != StateConnected {
		m.logger.Info("MQTT connection established")
	}
	m.setState(StateConnected)
}

// handleDisconnect runs when the transport loses the connection.
func (m *ConnectionManager) handleDisconnect(err error) {
	m.subMu.Lock()
	m.connGen++
	m.subMu.Unlock()

	m.logger.Warn("MQTT connection lost", "error", err)
	m.setState(StateDisconnected)
}

func (m *ConnectionManager) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	if prev == s {
		return
	}
	m.recorder.SetConnected(s == StateConnected)
	m.logger.Debug("connection state changed", "from", prev.String(), "to", s.String())
}
