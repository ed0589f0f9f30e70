package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// Keyword sets, checked in the order Interpret lists them.
var (
	temperatureWords = []string{"temperatura", "temp", "cuánto", "cuánta", "grados", "clima"}
	humidityWords    = []string{"humedad", "húmedo", "húmeda"}
	statusWords      = []string{"estado", "cómo está", "sistema", "todo bien"}
	devicesWords     = []string{"dispositivos", "relays", "qué está encendido"}
	configWords      = []string{"configuración"}

	turnOnWords  = []string{"enciende", "prende", "encender"}
	turnOffWords = []string{"apaga", "desactiva"}

	modeWords = []string{"modo"}

	hysteresisWords = []string{"histéresis", "histeresis", "margen"}
	tempMaxWords    = []string{"máxima", "maxima"}
	tempMinWords    = []string{"mínima", "minima"}
	setpointWords   = []string{"setpoint", "cambia", "objetivo"}

	helpWords = []string{"ayuda", "comandos"}
)

// modeKeywords is in resolution order.
var modeKeywords = []struct {
	words []string
	mode  telemetry.RelayMode
}{
	{words: []string{"automático", "auto"}, mode: telemetry.ModeAuto},
	{words: []string{"manual"}, mode: telemetry.ModeManual},
	{words: []string{"siempre encendido", "forzado on"}, mode: telemetry.ModeForcedOn},
	{words: []string{"siempre apagado", "forzado off"}, mode: telemetry.ModeForcedOff},
}

// configSetting is one adjustable configuration value.
type configSetting struct {
	words    []string
	intent   Intent
	lo, hi   float64
	apply    func(*telemetry.DeviceConfig, float64)
	okReply  string
	badReply string
}

// configSettings is in resolution order.
var configSettings = []configSetting{
	{
		words:    hysteresisWords,
		intent:   IntentSetHysteresis,
		lo:       0.5,
		hi:       5,
		apply:    func(c *telemetry.DeviceConfig, v float64) { c.Hysteresis = telemetry.Float(v) },
		okReply:  "Histéresis cambiada a %s grados",
		badReply: "No entendí el valor. La histéresis debe estar entre 0.5 y 5 grados",
	},
	{
		words:    tempMaxWords,
		intent:   IntentSetTempMax,
		lo:       20,
		hi:       50,
		apply:    func(c *telemetry.DeviceConfig, v float64) { c.TempMax = telemetry.Float(v) },
		okReply:  "Temperatura máxima configurada en %s grados. Te avisaré si se supera este valor",
		badReply: "No entendí el valor. La temperatura máxima debe estar entre 20 y 50 grados",
	},
	{
		words:    tempMinWords,
		intent:   IntentSetTempMin,
		lo:       5,
		hi:       25,
		apply:    func(c *telemetry.DeviceConfig, v float64) { c.TempMin = telemetry.Float(v) },
		okReply:  "Temperatura mínima configurada en %s grados. Te avisaré si baja de este valor",
		badReply: "No entendí el valor. La temperatura mínima debe estar entre 5 y 25 grados",
	},
	{
		words:    setpointWords,
		intent:   IntentSetSetpoint,
		lo:       15,
		hi:       35,
		apply:    func(c *telemetry.DeviceConfig, v float64) { c.Setpoint = telemetry.Float(v) },
		okReply:  "Setpoint cambiado a %s grados",
		badReply: "No entendí la temperatura. Debe estar entre 15 y 35 grados",
	},
}

// Replies shared with callers.
const (
	ReplyUnrecognized = "No entendí tu comando. Puedes preguntar por temperatura, humedad, o controlar dispositivos (enciende/apaga ventilador, luz, etc.)"
	ReplyNoSensorData = "Aún no he recibido datos del sensor."
	ReplyHelp         = "Puedo ayudarte con:\n" +
		"Consultas: temperatura, humedad, estado, dispositivos, configuración\n" +
		"Control: enciende/apaga ventilador, calefactor, humidificador, luz o todo\n" +
		"Modos: modo automático/manual/siempre encendido/siempre apagado del ventilador\n" +
		"Ajustes: setpoint 25, histéresis 2, máxima 30, mínima 18"
)

// Interpret classifies text and builds the reply and device commands.
//
// snap supplies the values quoted in query replies; topics supplies the
// command topics. Interpret is pure: it reads neither the network nor a clock.
func Interpret(text string, snap telemetry.Snapshot, topics mqtt.Topics) Interpretation {
	t := strings.ToLower(text)

	switch {
	case containsAny(t, temperatureWords...):
		return queryTemperature(snap)
	case containsAny(t, humidityWords...):
		return queryHumidity(snap)
	case containsAny(t, statusWords...):
		return queryStatus(snap)
	case containsAny(t, devicesWords...):
		return queryDevices(snap)
	case containsAny(t, configWords...):
		return queryConfig(snap)
	case containsAny(t, turnOnWords...):
		return switchDevices(t, true, topics)
	case containsAny(t, turnOffWords...):
		return switchDevices(t, false, topics)
	case containsAny(t, modeWords...):
		return setMode(t, topics)
	}

	for _, setting := range configSettings {
		if containsAny(t, setting.words...) {
			return setConfig(t, setting, topics)
		}
	}

	if containsAny(t, helpWords...) {
		return Interpretation{Intent: IntentHelp, Reply: ReplyHelp}
	}

	return Interpretation{Intent: IntentUnrecognized, Reply: ReplyUnrecognized}
}

func queryTemperature(snap telemetry.Snapshot) Interpretation {
	out := Interpretation{Intent: IntentQueryTemperature, Reply: ReplyNoSensorData}
	if r, ok := snap.Sensors(); ok {
		out.Reply = fmt.Sprintf("La temperatura actual es %.1f grados celsius y la humedad es %.0f por ciento", r.Temp, r.Hum)
	}
	return out
}

func queryHumidity(snap telemetry.Snapshot) Interpretation {
	out := Interpretation{Intent: IntentQueryHumidity, Reply: "Aún no he recibido datos del sensor de humedad."}
	if r, ok := snap.Sensors(); ok {
		out.Reply = fmt.Sprintf("La humedad actual es del %.0f por ciento", r.Hum)
	}
	return out
}

func queryStatus(snap telemetry.Snapshot) Interpretation {
	out := Interpretation{Intent: IntentQueryStatus, Reply: "El sistema está iniciando. Aún no he recibido datos."}
	r, ok := snap.Sensors()
	if !ok {
		return out
	}

	headline := "Todo está bien"
	cfg, _ := snap.Config()
	switch {
	case r.HasAlert():
		headline = "Alerta: " + r.Alert
	case cfg.TempMax != nil && r.Temp > *cfg.TempMax:
		headline = fmt.Sprintf("Temperatura ALTA (%.1f grados)", r.Temp)
	case cfg.TempMin != nil && r.Temp < *cfg.TempMin:
		headline = fmt.Sprintf("Temperatura BAJA (%.1f grados)", r.Temp)
	}

	out.Reply = fmt.Sprintf("%s. Temperatura %.1f grados, Humedad %.0f por ciento.", headline, r.Temp, r.Hum)
	if relays, ok := snap.Relays(); ok {
		out.Reply += fmt.Sprintf(" Dispositivos activos: %d de %d.", relays.ActiveCount(), telemetry.RelayCount)
	}
	return out
}

func queryDevices(snap telemetry.Snapshot) Interpretation {
	out := Interpretation{Intent: IntentQueryDevices, Reply: "No tengo información de los dispositivos"}
	relays, ok := snap.Relays()
	if !ok {
		return out
	}

	parts := make([]string, 0, telemetry.RelayCount)
	for id := 1; id <= telemetry.RelayCount; id++ {
		st, ok := relays.Get(id)
		if !ok {
			continue
		}
		name := st.Name
		if name == "" {
			name = DeviceLabel(id)
		}
		state := "apagado"
		if st.State {
			state = "encendido"
		}
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", name, state, st.Mode))
	}
	out.Reply = "Estado actual: " + strings.Join(parts, ", ")
	return out
}

func queryConfig(snap telemetry.Snapshot) Interpretation {
	out := Interpretation{Intent: IntentQueryConfig, Reply: "Aún no he recibido la configuración del dispositivo."}
	cfg, ok := snap.Config()
	if !ok {
		return out
	}

	var parts []string
	add := func(label string, v *float64) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s %s grados", label, formatNumber(*v)))
		}
	}
	add("Temperatura objetivo", cfg.Setpoint)
	add("Histéresis", cfg.Hysteresis)
	add("Temperatura máxima", cfg.TempMax)
	add("Temperatura mínima", cfg.TempMin)

	out.Reply = "Configuración actual: " + strings.Join(parts, ", ")
	return out
}

func switchDevices(t string, on bool, topics mqtt.Topics) Interpretation {
	intent, verb, infinitive, payload := IntentTurnOff, "apagado", "apagar", "OFF"
	if on {
		intent, verb, infinitive, payload = IntentTurnOn, "encendido", "encender", "ON"
	}

	if d, ok := resolveDevice(t); ok {
		return Interpretation{
			Intent:   intent,
			Reply:    DescribeSwitch(d.id, on),
			Commands: []DeviceCommand{{Topic: topics.RelayCommand(d.id), Payload: payload}},
		}
	}

	if containsAny(t, allAliases...) {
		cmds := make([]DeviceCommand, 0, telemetry.RelayCount)
		for id := 1; id <= telemetry.RelayCount; id++ {
			cmds = append(cmds, DeviceCommand{Topic: topics.RelayCommand(id), Payload: payload})
		}
		return Interpretation{
			Intent:   intent,
			Reply:    fmt.Sprintf("He %s todos los dispositivos", verb),
			Commands: cmds,
		}
	}

	return Interpretation{
		Intent: intent,
		Reply:  fmt.Sprintf("No entendí qué dispositivo %s. Especifica: ventilador, calefactor, humidificador o luz", infinitive),
	}
}

func setMode(t string, topics mqtt.Topics) Interpretation {
	out := Interpretation{Intent: IntentSetMode}

	mode, found := telemetry.RelayMode(0), false
	for _, mk := range modeKeywords {
		if containsAny(t, mk.words...) {
			mode, found = mk.mode, true
			break
		}
	}
	if !found {
		out.Reply = "Modos: automático, manual, siempre encendido, siempre apagado"
		return out
	}

	d, ok := resolveDevice(t)
	if !ok {
		out.Reply = "Especifica el dispositivo: ventilador, calefactor, humidificador o luz"
		return out
	}

	out.Reply = fmt.Sprintf("He cambiado %s a modo %s", DeviceName(d.id), mode)
	out.Commands = []DeviceCommand{{Topic: topics.RelayMode(d.id), Payload: fmt.Sprintf("%d", int(mode))}}
	return out
}

func setConfig(t string, setting configSetting, topics mqtt.Topics) Interpretation {
	out := Interpretation{Intent: setting.intent, Reply: setting.badReply}

	v, ok := firstInRange(t, setting.lo, setting.hi)
	if !ok {
		return out
	}

	var patch telemetry.DeviceConfig
	setting.apply(&patch, v)
	payload, err := ConfigPayload(patch)
	if err != nil {
		return out
	}

	out.Reply = fmt.Sprintf(setting.okReply, formatNumber(v))
	out.Commands = []DeviceCommand{{Topic: topics.ConfigSet(), Payload: payload}}
	return out
}

// ConfigPayload encodes a partial configuration for {ns}/config/set.
func ConfigPayload(patch telemetry.DeviceConfig) (string, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return "", fmt.Errorf("encoding config patch: %w", err)
	}
	return string(data), nil
}
