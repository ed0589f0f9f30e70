package command

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

var testTopics = mqtt.Topics{Namespace: "esp32"}

// snapshotWith builds a snapshot holding the given decoded values.
func snapshotWith(values ...any) telemetry.Snapshot {
	snap := telemetry.Snapshot{
		Messages:    map[telemetry.Channel]*telemetry.Message{},
		LastUpdated: time.Now(),
	}
	for _, v := range values {
		var ch telemetry.Channel
		switch v.(type) {
		case telemetry.SensorReading:
			ch = telemetry.ChannelSensors
		case telemetry.RelayStates:
			ch = telemetry.ChannelRelays
		case telemetry.DeviceStatus:
			ch = telemetry.ChannelStatus
		case telemetry.DeviceConfig:
			ch = telemetry.ChannelConfig
		}
		snap.Messages[ch] = &telemetry.Message{Channel: ch, Value: v}
	}
	return snap
}

func TestInterpret_TurnOnFan(t *testing.T) {
	got := Interpret("enciende el ventilador", telemetry.Snapshot{}, testTopics)

	if got.Intent != IntentTurnOn {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentTurnOn)
	}
	if len(got.Commands) != 1 {
		t.Fatalf("Commands = %v, want 1", got.Commands)
	}
	if got.Commands[0].Topic != "esp32/relay/1/cmd" || got.Commands[0].Payload != "ON" {
		t.Errorf("Commands[0] = %+v, want esp32/relay/1/cmd ON", got.Commands[0])
	}
	if !strings.Contains(got.Reply, "ventilador") {
		t.Errorf("Reply = %q, want mention of ventilador", got.Reply)
	}
}

func TestInterpret_TurnOffAll(t *testing.T) {
	got := Interpret("apaga todo", telemetry.Snapshot{}, testTopics)

	if got.Intent != IntentTurnOff {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentTurnOff)
	}
	if len(got.Commands) != 4 {
		t.Fatalf("len(Commands) = %d, want 4", len(got.Commands))
	}
	for i, cmd := range got.Commands {
		want := testTopics.RelayCommand(i + 1)
		if cmd.Topic != want || cmd.Payload != "OFF" {
			t.Errorf("Commands[%d] = %+v, want %s OFF", i, cmd, want)
		}
	}
}

func TestInterpret_Setpoint(t *testing.T) {
	got := Interpret("setpoint 26", telemetry.Snapshot{}, testTopics)

	if got.Intent != IntentSetSetpoint {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentSetSetpoint)
	}
	if len(got.Commands) != 1 {
		t.Fatalf("Commands = %v, want 1", got.Commands)
	}
	if got.Commands[0].Topic != "esp32/config/set" {
		t.Errorf("Topic = %q, want esp32/config/set", got.Commands[0].Topic)
	}

	var payload map[string]float64
	if err := json.Unmarshal([]byte(got.Commands[0].Payload), &payload); err != nil {
		t.Fatalf("payload %q: %v", got.Commands[0].Payload, err)
	}
	if len(payload) != 1 || payload["setpoint"] != 26 {
		t.Errorf("payload = %v, want {setpoint:26}", payload)
	}
}

func TestInterpret_SetpointOutOfRange(t *testing.T) {
	for _, text := range []string{"setpoint 50", "setpoint", "setpoint diez"} {
		got := Interpret(text, telemetry.Snapshot{}, testTopics)

		if got.Intent != IntentSetSetpoint {
			t.Errorf("Interpret(%q).Intent = %q, want %q", text, got.Intent, IntentSetSetpoint)
		}
		if len(got.Commands) != 0 {
			t.Errorf("Interpret(%q).Commands = %v, want none", text, got.Commands)
		}
		if !strings.Contains(got.Reply, "15 y 35") {
			t.Errorf("Interpret(%q).Reply = %q, want setpoint range reply", text, got.Reply)
		}
		if got.Reply == ReplyUnrecognized {
			t.Errorf("Interpret(%q) fell back to the generic reply", text)
		}
	}
}

func TestInterpret_SetpointFirstInRangeTokenWins(t *testing.T) {
	got := Interpret("cambia setpoint de 80 a 22,5 o 30", telemetry.Snapshot{}, testTopics)

	if len(got.Commands) != 1 || got.Commands[0].Payload != `{"setpoint":22.5}` {
		t.Errorf("Commands = %v, want setpoint 22.5", got.Commands)
	}
	if !strings.Contains(got.Reply, "22.5") {
		t.Errorf("Reply = %q, want 22.5", got.Reply)
	}
}

func TestInterpret_TemperatureQuery(t *testing.T) {
	snap := snapshotWith(telemetry.SensorReading{Temp: 24.3, Hum: 51, Alert: "OK"})

	got := Interpret("temperatura?", snap, testTopics)

	if got.Intent != IntentQueryTemperature {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentQueryTemperature)
	}
	if len(got.Commands) != 0 {
		t.Errorf("Commands = %v, want none", got.Commands)
	}
	if !strings.Contains(got.Reply, "24.3") || !strings.Contains(got.Reply, "51") {
		t.Errorf("Reply = %q, want 24.3 and 51", got.Reply)
	}
}

func TestInterpret_QueryBeforeAction(t *testing.T) {
	got := Interpret("enciende el ventilador si la temperatura sube", telemetry.Snapshot{}, testTopics)

	if got.Intent != IntentQueryTemperature {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentQueryTemperature)
	}
	if len(got.Commands) != 0 {
		t.Errorf("Commands = %v, want none", got.Commands)
	}
}

func TestInterpret_OnBeforeOff(t *testing.T) {
	got := Interpret("enciende la luz y apaga el ventilador", telemetry.Snapshot{}, testTopics)

	if got.Intent != IntentTurnOn {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentTurnOn)
	}
	// Alias order puts the fan before the light.
	if len(got.Commands) != 1 || got.Commands[0].Topic != "esp32/relay/1/cmd" || got.Commands[0].Payload != "ON" {
		t.Errorf("Commands = %v, want relay 1 ON", got.Commands)
	}
}

func TestInterpret_DeviceAliases(t *testing.T) {
	tests := []struct {
		text  string
		topic string
		pay   string
	}{
		{"prende el calefactor", "esp32/relay/2/cmd", "ON"},
		{"enciende el calor", "esp32/relay/2/cmd", "ON"},
		{"apaga el humidificador", "esp32/relay/3/cmd", "OFF"},
		{"apaga la lámpara", "esp32/relay/4/cmd", "OFF"},
		{"enciende el foco", "esp32/relay/4/cmd", "ON"},
		{"desactiva 3", "esp32/relay/3/cmd", "OFF"},
		{"ENCIENDE LA LUZ", "esp32/relay/4/cmd", "ON"},
		{"encender relay 2", "esp32/relay/2/cmd", "ON"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Interpret(tt.text, telemetry.Snapshot{}, testTopics)
			if len(got.Commands) != 1 {
				t.Fatalf("Commands = %v, want 1", got.Commands)
			}
			if got.Commands[0].Topic != tt.topic || got.Commands[0].Payload != tt.pay {
				t.Errorf("Commands[0] = %+v, want %s %s", got.Commands[0], tt.topic, tt.pay)
			}
		})
	}
}

func TestInterpret_UnresolvedDevice(t *testing.T) {
	tests := []struct {
		text   string
		intent Intent
		verb   string
	}{
		{"enciende algo", IntentTurnOn, "encender"},
		{"apaga eso", IntentTurnOff, "apagar"},
	}

	for _, tt := range tests {
		got := Interpret(tt.text, telemetry.Snapshot{}, testTopics)
		if got.Intent != tt.intent {
			t.Errorf("Interpret(%q).Intent = %q, want %q", tt.text, got.Intent, tt.intent)
		}
		if len(got.Commands) != 0 {
			t.Errorf("Interpret(%q).Commands = %v, want none", tt.text, got.Commands)
		}
		if !strings.Contains(got.Reply, tt.verb) {
			t.Errorf("Interpret(%q).Reply = %q, want mention of %q", tt.text, got.Reply, tt.verb)
		}
	}
}

func TestInterpret_Mode(t *testing.T) {
	tests := []struct {
		text    string
		topic   string
		payload string
	}{
		{"pon el ventilador en modo automático", "esp32/relay/1/mode", "2"},
		{"modo manual para la luz", "esp32/relay/4/mode", "3"},
		{"calefactor modo siempre encendido", "esp32/relay/2/mode", "1"},
		{"humidificador modo forzado off", "esp32/relay/3/mode", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Interpret(tt.text, telemetry.Snapshot{}, testTopics)
			if got.Intent != IntentSetMode {
				t.Fatalf("Intent = %q, want %q", got.Intent, IntentSetMode)
			}
			if len(got.Commands) != 1 || got.Commands[0].Topic != tt.topic || got.Commands[0].Payload != tt.payload {
				t.Errorf("Commands = %v, want %s=%s", got.Commands, tt.topic, tt.payload)
			}
		})
	}
}

func TestInterpret_ModeWithoutKeywordOrDevice(t *testing.T) {
	got := Interpret("modo del ventilador", telemetry.Snapshot{}, testTopics)
	if got.Intent != IntentSetMode || len(got.Commands) != 0 || !strings.Contains(got.Reply, "Modos") {
		t.Errorf("missing mode keyword: %+v", got)
	}

	got = Interpret("modo manual", telemetry.Snapshot{}, testTopics)
	if got.Intent != IntentSetMode || len(got.Commands) != 0 || !strings.Contains(got.Reply, "Especifica") {
		t.Errorf("missing device: %+v", got)
	}
}

// "siempre apagado" contains "apaga", so the turn-off branch wins.
func TestInterpret_ModeForcedOffHitsTurnOff(t *testing.T) {
	got := Interpret("ventilador modo siempre apagado", telemetry.Snapshot{}, testTopics)

	if got.Intent != IntentTurnOff {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentTurnOff)
	}
}

func TestInterpret_ConfigSettings(t *testing.T) {
	tests := []struct {
		text    string
		intent  Intent
		payload string
	}{
		{"histéresis 1,5", IntentSetHysteresis, `{"hysteresis":1.5}`},
		{"cambia el margen a 2", IntentSetHysteresis, `{"hysteresis":2}`},
		{"máxima 30", IntentSetTempMax, `{"tempMax":30}`},
		{"minima 18", IntentSetTempMin, `{"tempMin":18}`},
		{"objetivo 24", IntentSetSetpoint, `{"setpoint":24}`},
		{"cambia a 20", IntentSetSetpoint, `{"setpoint":20}`},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Interpret(tt.text, telemetry.Snapshot{}, testTopics)
			if got.Intent != tt.intent {
				t.Fatalf("Intent = %q, want %q", got.Intent, tt.intent)
			}
			if len(got.Commands) != 1 || got.Commands[0].Payload != tt.payload {
				t.Errorf("Commands = %v, want payload %s", got.Commands, tt.payload)
			}
		})
	}
}

func TestInterpret_ConfigOutOfRange(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"histéresis 9", "0.5 y 5"},
		{"máxima 60", "20 y 50"},
		{"mínima 2", "5 y 25"},
	}

	for _, tt := range tests {
		got := Interpret(tt.text, telemetry.Snapshot{}, testTopics)
		if len(got.Commands) != 0 {
			t.Errorf("Interpret(%q).Commands = %v, want none", tt.text, got.Commands)
		}
		if !strings.Contains(got.Reply, tt.want) {
			t.Errorf("Interpret(%q).Reply = %q, want range %q", tt.text, got.Reply, tt.want)
		}
	}
}

// "temperatura máxima 30" contains "temp", so it resolves as a query.
func TestInterpret_TemperatureWordShadowsConfig(t *testing.T) {
	got := Interpret("temperatura máxima 30", telemetry.Snapshot{}, testTopics)

	if got.Intent != IntentQueryTemperature || len(got.Commands) != 0 {
		t.Errorf("got %+v, want temperature query without commands", got)
	}
}

func TestInterpret_HumidityQuery(t *testing.T) {
	got := Interpret("¿qué humedad hay?", snapshotWith(telemetry.SensorReading{Temp: 20, Hum: 63}), testTopics)
	if got.Intent != IntentQueryHumidity || !strings.Contains(got.Reply, "63") {
		t.Errorf("got %+v, want humidity 63", got)
	}

	got = Interpret("humedad", telemetry.Snapshot{}, testTopics)
	if !strings.Contains(got.Reply, "Aún no") {
		t.Errorf("Reply = %q, want no-data reply", got.Reply)
	}
}

func TestInterpret_StatusQuery(t *testing.T) {
	relays := telemetry.RelayStates{
		"r1": {State: true},
		"r2": {State: false},
		"r3": {State: true},
		"r4": {State: false},
	}
	cfg := telemetry.DeviceConfig{TempMax: telemetry.Float(30), TempMin: telemetry.Float(18)}

	tests := []struct {
		name string
		snap telemetry.Snapshot
		want []string
	}{
		{
			name: "no data",
			snap: telemetry.Snapshot{},
			want: []string{"iniciando"},
		},
		{
			name: "all good",
			snap: snapshotWith(telemetry.SensorReading{Temp: 24, Hum: 50, Alert: "OK"}, relays, cfg),
			want: []string{"Todo está bien", "24.0", "50", "Dispositivos activos: 2 de 4"},
		},
		{
			name: "alert",
			snap: snapshotWith(telemetry.SensorReading{Temp: 24, Hum: 50, Alert: "SENSOR_ERROR"}),
			want: []string{"Alerta: SENSOR_ERROR"},
		},
		{
			name: "too hot",
			snap: snapshotWith(telemetry.SensorReading{Temp: 33.2, Hum: 50, Alert: "OK"}, cfg),
			want: []string{"ALTA", "33.2"},
		},
		{
			name: "too cold",
			snap: snapshotWith(telemetry.SensorReading{Temp: 12, Hum: 50, Alert: "OK"}, cfg),
			want: []string{"BAJA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret("¿cómo está el sistema?", tt.snap, testTopics)
			if got.Intent != IntentQueryStatus {
				t.Fatalf("Intent = %q, want %q", got.Intent, IntentQueryStatus)
			}
			for _, w := range tt.want {
				if !strings.Contains(got.Reply, w) {
					t.Errorf("Reply = %q, missing %q", got.Reply, w)
				}
			}
		})
	}
}

func TestInterpret_DevicesQuery(t *testing.T) {
	snap := snapshotWith(telemetry.RelayStates{
		"r1": {Name: "Ventilador", State: true, Mode: telemetry.ModeManual},
		"r4": {State: false, Mode: telemetry.ModeAuto},
	})

	got := Interpret("dispositivos", snap, testTopics)

	if got.Intent != IntentQueryDevices {
		t.Fatalf("Intent = %q, want %q", got.Intent, IntentQueryDevices)
	}
	for _, w := range []string{"Ventilador: encendido (manual)", "Foco/Luz: apagado (automático)"} {
		if !strings.Contains(got.Reply, w) {
			t.Errorf("Reply = %q, missing %q", got.Reply, w)
		}
	}

	got = Interpret("relays", telemetry.Snapshot{}, testTopics)
	if !strings.Contains(got.Reply, "No tengo información") {
		t.Errorf("Reply = %q, want no-info reply", got.Reply)
	}
}

func TestInterpret_ConfigQuery(t *testing.T) {
	snap := snapshotWith(telemetry.DeviceConfig{
		Setpoint:   telemetry.Float(24),
		Hysteresis: telemetry.Float(0.5),
	})

	got := Interpret("configuración", snap, testTopics)

	if got.Intent != IntentQueryConfig {
		t.Fatalf("Intent = %q, want %q", got.Intent, IntentQueryConfig)
	}
	if !strings.Contains(got.Reply, "objetivo 24 grados") || !strings.Contains(got.Reply, "Histéresis 0.5 grados") {
		t.Errorf("Reply = %q", got.Reply)
	}
	if strings.Contains(got.Reply, "máxima") {
		t.Errorf("Reply = %q, want unset fields omitted", got.Reply)
	}
}

func TestInterpret_HelpAndUnrecognized(t *testing.T) {
	if got := Interpret("ayuda", telemetry.Snapshot{}, testTopics); got.Intent != IntentHelp || got.Reply != ReplyHelp {
		t.Errorf("help = %+v", got)
	}

	for _, text := range []string{"hola", "", "   "} {
		got := Interpret(text, telemetry.Snapshot{}, testTopics)
		if got.Intent != IntentUnrecognized || got.Reply != ReplyUnrecognized || len(got.Commands) != 0 {
			t.Errorf("Interpret(%q) = %+v, want unrecognized", text, got)
		}
	}
}

func TestInterpret_ReplyNeverEmpty(t *testing.T) {
	inputs := []string{
		"temperatura", "humedad", "estado", "dispositivos", "configuración",
		"enciende", "apaga", "modo", "setpoint", "histéresis", "máxima", "mínima",
		"ayuda", "xyz", "enciende todo", "apaga 4", "modo auto 1",
	}

	for _, text := range inputs {
		got := Interpret(text, telemetry.Snapshot{}, testTopics)
		if got.Reply == "" {
			t.Errorf("Interpret(%q).Reply is empty", text)
		}
		if n := len(got.Commands); n != 0 && n != 1 && n != 4 {
			t.Errorf("Interpret(%q) produced %d commands", text, n)
		}
	}
}

func TestIntentPredicates(t *testing.T) {
	if !IntentQueryStatus.IsQuery() || IntentTurnOn.IsQuery() {
		t.Error("IsQuery() mismatch")
	}
	if !IntentQueryHumidity.NeedsSensors() || IntentQueryDevices.NeedsSensors() {
		t.Error("NeedsSensors() mismatch")
	}
}

func TestDescribeSwitch(t *testing.T) {
	if got := DescribeSwitch(4, true); got != "He encendido la luz" {
		t.Errorf("DescribeSwitch(4, true) = %q", got)
	}
	if got := DescribeSwitch(9, false); got != "He apagado el relay 9" {
		t.Errorf("DescribeSwitch(9, false) = %q", got)
	}
}
