package mqtt

import (
	"fmt"
	"strings"
)

// DefaultNamespace is the first topic segment used by the stock firmware.
const DefaultNamespace = "esp32"

// Topics provides builders for the device's MQTT topics under one namespace.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{Namespace: "esp32"}
//	topics.RelayCommand(2) // "esp32/relay/2/cmd"
//
// The zero value uses DefaultNamespace.
type Topics struct {
	Namespace string
}

// NS returns the effective namespace.
func (t Topics) NS() string {
	if t.Namespace == "" {
		return DefaultNamespace
	}
	return t.Namespace
}

// =============================================================================
// Device → bridge
// =============================================================================

// Sensors returns the topic carrying temperature/humidity readings.
//
// Example: esp32/sensores
func (t Topics) Sensors() string {
	return t.NS() + "/sensores"
}

// RelayStatus returns the topic carrying the state of all relays.
//
// Example: esp32/relay/status
func (t Topics) RelayStatus() string {
	return t.NS() + "/relay/status"
}

// Status returns the device's online/offline presence topic.
//
// Example: esp32/status
func (t Topics) Status() string {
	return t.NS() + "/status"
}

// Config returns the topic on which the device reports its active configuration.
//
// Example: esp32/config
func (t Topics) Config() string {
	return t.NS() + "/config"
}

// Telemetry returns every device → bridge topic the bridge subscribes to.
func (t Topics) Telemetry() []string {
	return []string{t.Sensors(), t.RelayStatus(), t.Status(), t.Config()}
}

// =============================================================================
// Bridge → device
// =============================================================================

// RelayCommand returns the ON/OFF command topic for a relay.
//
// Example: esp32/relay/1/cmd
func (t Topics) RelayCommand(id int) string {
	return fmt.Sprintf("%s/relay/%d/cmd", t.NS(), id)
}

// RelayMode returns the mode selection topic for a relay.
//
// Example: esp32/relay/1/mode
func (t Topics) RelayMode(id int) string {
	return fmt.Sprintf("%s/relay/%d/mode", t.NS(), id)
}

// ConfigSet returns the topic accepting partial configuration updates.
//
// Example: esp32/config/set
func (t Topics) ConfigSet() string {
	return t.NS() + "/config/set"
}

// TTSText returns the topic for text the device should speak.
//
// Example: esp32/tts/text
func (t Topics) TTSText() string {
	return t.NS() + "/tts/text"
}

// =============================================================================
// Bridge presence
// =============================================================================

// BridgeStatus returns the retained online/offline topic of the bridge itself.
//
// Example: esp32/bridge/status
func (t Topics) BridgeStatus() string {
	return t.NS() + "/bridge/status"
}

// InNamespace reports whether topic lies strictly below the namespace and
// carries no wildcard.
func (t Topics) InNamespace(topic string) bool {
	prefix := t.NS() + "/"
	if !strings.HasPrefix(topic, prefix) || len(topic) == len(prefix) {
		return false
	}
	return !strings.ContainsAny(topic, "+#")
}
