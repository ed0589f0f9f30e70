package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
)

// DefaultStalenessThreshold is used when Options leaves the threshold unset.
const DefaultStalenessThreshold = 30 * time.Second

// UpdateObserver is called after a message is stored. It runs on the MQTT
// delivery goroutine and must not block.
type UpdateObserver func(msg *Message)

// RejectObserver is called when a payload is discarded as malformed.
type RejectObserver func(ch Channel, err error)

// Options configures a Cache.
type Options struct {
	// StalenessThreshold is the age beyond which data is stale. Default 30s.
	StalenessThreshold time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Cache holds the last message of every telemetry channel.
//
// Thread Safety:
//   - A single writer (the arrival handler) and any number of readers.
//   - Readers never take a lock: each channel cell is an atomic pointer.
type Cache struct {
	byTopic   map[string]Channel
	cells     map[Channel]*cell
	threshold time.Duration
	now       func() time.Time

	// lastUpdated is unix nanoseconds of the newest update, 0 when never updated.
	lastUpdated atomic.Int64
	seq         atomic.Uint64

	obsMu     sync.RWMutex
	onUpdate  []UpdateObserver
	onRejects []RejectObserver
}

// cell is one channel's last value plus the notification channel closed on
// the next update.
type cell struct {
	msg    atomic.Pointer[Message]
	notify atomic.Pointer[chan struct{}]
}

func newCell() *cell {
	c := &cell{}
	ch := make(chan struct{})
	c.notify.Store(&ch)
	return c
}

// NewCache creates an empty cache for the device topics in topics.
func NewCache(topics mqtt.Topics, opts Options) *Cache {
	if opts.StalenessThreshold <= 0 {
		opts.StalenessThreshold = DefaultStalenessThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Cache{
		byTopic: map[string]Channel{
			topics.Sensors():     ChannelSensors,
			topics.RelayStatus(): ChannelRelays,
			topics.Status():      ChannelStatus,
			topics.Config():      ChannelConfig,
		},
		cells:     make(map[Channel]*cell, len(AllChannels)),
		threshold: opts.StalenessThreshold,
		now:       opts.Now,
	}
	for _, ch := range AllChannels {
		c.cells[ch] = newCell()
	}
	return c
}

// Topic returns the MQTT topic that feeds ch.
func (c *Cache) Topic(ch Channel) string {
	for topic, mapped := range c.byTopic {
		if mapped == ch {
			return topic
		}
	}
	return ""
}

// ChannelForTopic maps an MQTT topic to its channel.
func (c *Cache) ChannelForTopic(topic string) (Channel, bool) {
	ch, ok := c.byTopic[topic]
	return ch, ok
}

// HandleMessage decodes payload and stores it. It has the mqtt.MessageHandler
// signature so it can be subscribed directly.
//
// A malformed payload leaves the cached value untouched; the error is
// returned for the transport to log and reported to reject observers.
func (c *Cache) HandleMessage(topic string, payload []byte) error {
	ch, ok := c.byTopic[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	value, err := Decode(ch, payload)
	if err != nil {
		c.notifyReject(ch, err)
		return err
	}

	// paho may reuse the payload buffer.
	owned := make([]byte, len(payload))
	copy(owned, payload)

	return c.Update(&Message{
		Channel: ch,
		Topic:   topic,
		Payload: owned,
		Value:   value,
	})
}

// Update stores msg as the latest value of its channel, overwriting any
// previous value, and wakes every Watch on that channel.
//
// ReceivedAt is stamped with the cache clock when zero. The cache takes
// ownership of msg; callers must not modify it afterwards.
func (c *Cache) Update(msg *Message) error {
	cl, ok := c.cells[msg.Channel]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, msg.Channel)
	}

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = c.now()
	}
	msg.Seq = c.seq.Add(1)

	cl.msg.Store(msg)
	c.advanceLastUpdated(msg.ReceivedAt.UnixNano())

	next := make(chan struct{})
	prev := cl.notify.Swap(&next)
	close(*prev)

	c.obsMu.RLock()
	observers := c.onUpdate
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(msg)
	}

	return nil
}

// advanceLastUpdated moves lastUpdated forward, never backward.
func (c *Cache) advanceLastUpdated(ts int64) {
	for {
		cur := c.lastUpdated.Load()
		if ts <= cur {
			return
		}
		if c.lastUpdated.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// Get returns the last message on ch, or nil when nothing has arrived.
func (c *Cache) Get(ch Channel) *Message {
	cl, ok := c.cells[ch]
	if !ok {
		return nil
	}
	return cl.msg.Load()
}

// Watch returns a channel that is closed on the next update of ch.
// Call Watch before Get to avoid missing an update between the two.
// An unknown channel yields a channel that is never closed.
func (c *Cache) Watch(ch Channel) <-chan struct{} {
	cl, ok := c.cells[ch]
	if !ok {
		return make(chan struct{})
	}
	return *cl.notify.Load()
}

// Snapshot returns every channel's last message and the newest update time.
func (c *Cache) Snapshot() Snapshot {
	snap := Snapshot{
		Messages:    make(map[Channel]*Message, len(c.cells)),
		LastUpdated: c.LastUpdated(),
	}
	for ch, cl := range c.cells {
		if m := cl.msg.Load(); m != nil {
			snap.Messages[ch] = m
		}
	}
	return snap
}

// LastUpdated returns the time of the newest update, zero when never updated.
func (c *Cache) LastUpdated() time.Time {
	ns := c.lastUpdated.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Freshness describes how old the cached telemetry is.
type Freshness struct {
	// Updated is false when nothing has been received yet.
	Updated     bool
	LastUpdated time.Time
	Age         time.Duration
	IsStale     bool
}

// Freshness evaluates the cache age against the staleness threshold now.
func (c *Cache) Freshness() Freshness {
	return c.FreshnessAt(c.now())
}

// FreshnessAt evaluates the cache age at t. Data is stale when its age is
// strictly greater than the threshold, or when nothing was ever received.
func (c *Cache) FreshnessAt(t time.Time) Freshness {
	last := c.LastUpdated()
	if last.IsZero() {
		return Freshness{IsStale: true}
	}

	age := t.Sub(last)
	if age < 0 {
		age = 0
	}
	return Freshness{
		Updated:     true,
		LastUpdated: last,
		Age:         age,
		IsStale:     age > c.threshold,
	}
}

// Seq returns the sequence number of the newest stored message, 0 when
// nothing has been stored. A message with a higher Seq arrived later.
func (c *Cache) Seq() uint64 {
	return c.seq.Load()
}

// Threshold returns the staleness threshold.
func (c *Cache) Threshold() time.Duration {
	return c.threshold
}

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time {
	return c.now()
}

// OnUpdate registers an observer for stored messages.
// Register observers before the transport starts delivering.
func (c *Cache) OnUpdate(fn UpdateObserver) {
	c.obsMu.Lock()
	c.onUpdate = append(c.onUpdate, fn)
	c.obsMu.Unlock()
}

// OnReject registers an observer for malformed payloads.
func (c *Cache) OnReject(fn RejectObserver) {
	c.obsMu.Lock()
	c.onRejects = append(c.onRejects, fn)
	c.obsMu.Unlock()
}

func (c *Cache) notifyReject(ch Channel, err error) {
	c.obsMu.RLock()
	observers := c.onRejects
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(ch, err)
	}
}
