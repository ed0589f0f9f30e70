package command

// Intent is the classified meaning of a text message.
type Intent string

// Intents.
const (
	IntentQueryTemperature Intent = "query_temperature"
	IntentQueryHumidity    Intent = "query_humidity"
	IntentQueryStatus      Intent = "query_status"
	IntentQueryDevices     Intent = "query_devices"
	IntentQueryConfig      Intent = "query_config"
	IntentTurnOn           Intent = "turn_on"
	IntentTurnOff          Intent = "turn_off"
	IntentSetMode          Intent = "set_mode"
	IntentSetSetpoint      Intent = "set_setpoint"
	IntentSetHysteresis    Intent = "set_hysteresis"
	IntentSetTempMax       Intent = "set_temp_max"
	IntentSetTempMin       Intent = "set_temp_min"
	IntentHelp             Intent = "help"
	IntentUnrecognized     Intent = "unrecognized"
)

// IsQuery reports whether the intent only reads telemetry.
func (i Intent) IsQuery() bool {
	switch i {
	case IntentQueryTemperature, IntentQueryHumidity, IntentQueryStatus,
		IntentQueryDevices, IntentQueryConfig:
		return true
	}
	return false
}

// NeedsSensors reports whether the reply is built from the sensor reading.
func (i Intent) NeedsSensors() bool {
	switch i {
	case IntentQueryTemperature, IntentQueryHumidity, IntentQueryStatus:
		return true
	}
	return false
}

// DeviceCommand is one message to publish to the device.
type DeviceCommand struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Interpretation is the result of Interpret.
type Interpretation struct {
	Intent   Intent          `json:"intent"`
	Reply    string          `json:"reply"`
	Commands []DeviceCommand `json:"commands,omitempty"`
}
