package telemetry

import (
	"fmt"
	"sort"
	"time"
)

// Channel identifies one logical inbound telemetry stream.
type Channel string

// Tracked channels.
const (
	// ChannelSensors carries temperature/humidity readings ({ns}/sensores).
	ChannelSensors Channel = "sensors"

	// ChannelRelays carries the state of every relay ({ns}/relay/status).
	ChannelRelays Channel = "relays"

	// ChannelStatus carries the device's online/offline presence ({ns}/status).
	ChannelStatus Channel = "status"

	// ChannelConfig carries the device's active configuration ({ns}/config).
	ChannelConfig Channel = "config"
)

// AllChannels lists the tracked channels in subscription order.
var AllChannels = []Channel{ChannelSensors, ChannelRelays, ChannelStatus, ChannelConfig}

// ParseChannel converts a channel name into a Channel.
func ParseChannel(s string) (Channel, error) {
	for _, ch := range AllChannels {
		if string(ch) == s {
			return ch, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// Message is one decoded telemetry message. It is immutable once stored in
// the cache; readers must not modify Payload.
type Message struct {
	Channel Channel
	Topic   string
	Payload []byte

	// Value is the decoded payload: SensorReading, RelayStates, DeviceStatus or DeviceConfig.
	Value any

	ReceivedAt time.Time

	// Seq increases by one with every update stored in the cache, across channels.
	Seq uint64
}

// SensorReading is the payload of the sensors channel.
type SensorReading struct {
	Temp     float64  `json:"temp"`
	Hum      float64  `json:"hum"`
	Alert    string   `json:"alert"`
	Setpoint *float64 `json:"setpoint,omitempty"`
}

// AlertOK is the alert text the firmware reports when nothing is wrong.
const AlertOK = "OK"

// HasAlert reports whether the reading carries an alert other than "OK".
func (r SensorReading) HasAlert() bool {
	return r.Alert != "" && r.Alert != AlertOK
}

// RelayMode is the operating mode of a relay.
type RelayMode int

// Relay modes understood by the firmware.
const (
	ModeForcedOff RelayMode = 0
	ModeForcedOn  RelayMode = 1
	ModeAuto      RelayMode = 2
	ModeManual    RelayMode = 3
)

// Valid reports whether m is a mode the firmware accepts.
func (m RelayMode) Valid() bool {
	return m >= ModeForcedOff && m <= ModeManual
}

// String returns the Spanish name used in replies.
func (m RelayMode) String() string {
	switch m {
	case ModeForcedOff:
		return "siempre apagado"
	case ModeForcedOn:
		return "siempre encendido"
	case ModeAuto:
		return "automático"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("modo %d", int(m))
	}
}

// RelayCount is the number of relays on the controller.
const RelayCount = 4

// RelayState is the reported state of one relay.
type RelayState struct {
	Name  string    `json:"name,omitempty"`
	State bool      `json:"state"`
	Mode  RelayMode `json:"mode"`
}

// RelayStates maps relay keys ("r1".."r4") to their state.
type RelayStates map[string]RelayState

// RelayKey returns the status key for relay id (1-based).
func RelayKey(id int) string {
	return fmt.Sprintf("r%d", id)
}

// Get returns the state of relay id.
func (s RelayStates) Get(id int) (RelayState, bool) {
	st, ok := s[RelayKey(id)]
	return st, ok
}

// ActiveCount returns the number of relays currently switched on.
func (s RelayStates) ActiveCount() int {
	n := 0
	for _, st := range s {
		if st.State {
			n++
		}
	}
	return n
}

// Keys returns the relay keys in ascending order.
func (s RelayStates) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (s RelayStates) Clone() RelayStates {
	if s == nil {
		return nil
	}
	out := make(RelayStates, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// DeviceStatus is the device's presence text, e.g. "online".
type DeviceStatus string

// Online reports whether the device announced itself online.
func (s DeviceStatus) Online() bool {
	return s == "online"
}

// DeviceConfig is the controller configuration. Every field is optional so
// the same type serves as a partial update for {ns}/config/set.
type DeviceConfig struct {
	Setpoint   *float64 `json:"setpoint,omitempty"`
	Hysteresis *float64 `json:"hysteresis,omitempty"`
	TempMax    *float64 `json:"tempMax,omitempty"`
	TempMin    *float64 `json:"tempMin,omitempty"`
}

// Empty reports whether no field is set.
func (c DeviceConfig) Empty() bool {
	return c.Setpoint == nil && c.Hysteresis == nil && c.TempMax == nil && c.TempMin == nil
}

// Clone returns a copy that shares no pointers with c.
func (c DeviceConfig) Clone() DeviceConfig {
	return DeviceConfig{
		Setpoint:   clonePtr(c.Setpoint),
		Hysteresis: clonePtr(c.Hysteresis),
		TempMax:    clonePtr(c.TempMax),
		TempMin:    clonePtr(c.TempMin),
	}
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v, for building DeviceConfig literals.
func Float(v float64) *float64 {
	return &v
}

// Snapshot is an immutable view of every channel's last message.
type Snapshot struct {
	Messages    map[Channel]*Message
	LastUpdated time.Time
}

// Message returns the last message on ch, or nil.
func (s Snapshot) Message(ch Channel) *Message {
	return s.Messages[ch]
}

// Sensors returns the last sensor reading.
func (s Snapshot) Sensors() (SensorReading, bool) {
	if m := s.Messages[ChannelSensors]; m != nil {
		if v, ok := m.Value.(SensorReading); ok {
			v.Setpoint = clonePtr(v.Setpoint)
			return v, true
		}
	}
	return SensorReading{}, false
}

// Relays returns a copy of the last relay states.
func (s Snapshot) Relays() (RelayStates, bool) {
	if m := s.Messages[ChannelRelays]; m != nil {
		if v, ok := m.Value.(RelayStates); ok {
			return v.Clone(), true
		}
	}
	return nil, false
}

// Status returns the last device presence text.
func (s Snapshot) Status() (DeviceStatus, bool) {
	if m := s.Messages[ChannelStatus]; m != nil {
		if v, ok := m.Value.(DeviceStatus); ok {
			return v, true
		}
	}
	return "", false
}

// Config returns a copy of the last reported device configuration.
func (s Snapshot) Config() (DeviceConfig, bool) {
	if m := s.Messages[ChannelConfig]; m != nil {
		if v, ok := m.Value.(DeviceConfig); ok {
			return v.Clone(), true
		}
	}
	return DeviceConfig{}, false
}
