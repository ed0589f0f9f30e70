package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Decode parses a raw payload for ch into its typed value.
//
// Returns:
//   - any: SensorReading, RelayStates, DeviceStatus or DeviceConfig
//   - error: wrapped ErrMalformedPayload, or ErrUnknownChannel
func Decode(ch Channel, payload []byte) (any, error) {
	switch ch {
	case ChannelSensors:
		return decodeSensors(payload)
	case ChannelRelays:
		return decodeRelays(payload)
	case ChannelStatus:
		return decodeStatus(payload)
	case ChannelConfig:
		return decodeConfig(payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
}

// decodeSensors requires numeric temp and hum; alert defaults to "OK".
func decodeSensors(payload []byte) (SensorReading, error) {
	var raw struct {
		Temp     *float64 `json:"temp"`
		Hum      *float64 `json:"hum"`
		Alert    *string  `json:"alert"`
		Setpoint *float64 `json:"setpoint"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return SensorReading{}, fmt.Errorf("%w: sensors: %w", ErrMalformedPayload, err)
	}
	if raw.Temp == nil || raw.Hum == nil {
		return SensorReading{}, fmt.Errorf("%w: sensors: temp and hum are required", ErrMalformedPayload)
	}

	reading := SensorReading{
		Temp:     *raw.Temp,
		Hum:      *raw.Hum,
		Alert:    AlertOK,
		Setpoint: raw.Setpoint,
	}
	if raw.Alert != nil && *raw.Alert != "" {
		reading.Alert = *raw.Alert
	}
	return reading, nil
}

// decodeRelays accepts an object keyed r1..r4 whose values are either full
// relay objects or bare booleans. Unknown keys are ignored. The result
// replaces the previous relay states wholesale.
func decodeRelays(payload []byte) (RelayStates, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: relays: %w", ErrMalformedPayload, err)
	}

	states := make(RelayStates, RelayCount)
	for id := 1; id <= RelayCount; id++ {
		key := RelayKey(id)
		value, ok := raw[key]
		if !ok {
			continue
		}

		var on bool
		if err := json.Unmarshal(value, &on); err == nil {
			states[key] = RelayState{State: on}
			continue
		}

		var st RelayState
		if err := json.Unmarshal(value, &st); err != nil {
			return nil, fmt.Errorf("%w: relays: %s: %w", ErrMalformedPayload, key, err)
		}
		states[key] = st
	}

	if len(states) == 0 {
		return nil, fmt.Errorf("%w: relays: no relay keys present", ErrMalformedPayload)
	}
	return states, nil
}

// decodeStatus accepts plain text ("online") or a JSON string/object with a status field.
func decodeStatus(payload []byte) (DeviceStatus, error) {
	text := bytes.TrimSpace(payload)

	if len(text) > 0 && (text[0] == '{' || text[0] == '"') {
		var s string
		if err := json.Unmarshal(text, &s); err == nil {
			text = []byte(s)
		} else {
			var obj struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(text, &obj); err != nil {
				return "", fmt.Errorf("%w: status: %w", ErrMalformedPayload, err)
			}
			text = []byte(obj.Status)
		}
	}

	status := strings.ToLower(strings.TrimSpace(string(text)))
	if status == "" {
		return "", fmt.Errorf("%w: status: empty", ErrMalformedPayload)
	}
	return DeviceStatus(status), nil
}

// decodeConfig requires at least one known configuration field.
func decodeConfig(payload []byte) (DeviceConfig, error) {
	var cfg DeviceConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return DeviceConfig{}, fmt.Errorf("%w: config: %w", ErrMalformedPayload, err)
	}
	if cfg.Empty() {
		return DeviceConfig{}, fmt.Errorf("%w: config: no known fields", ErrMalformedPayload)
	}
	return cfg, nil
}
