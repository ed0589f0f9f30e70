// Package metrics exposes bridge and telemetry state as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

const namespace = "climabridge"

// Metrics holds every collector. It implements bridge.Recorder and observes
// a telemetry.Cache.
type Metrics struct {
	mqttConnected     prometheus.Gauge
	telemetryMessages *prometheus.CounterVec
	parseErrors       *prometheus.CounterVec
	awaits            *prometheus.CounterVec
	awaitDuration     prometheus.Histogram
	publishes         *prometheus.CounterVec
	temperature       prometheus.Gauge
	humidity          prometheus.Gauge
	setpoint          prometheus.Gauge
	sensorAlert       prometheus.Gauge
	deviceOnline      prometheus.Gauge
	relayState        *prometheus.GaugeVec
	relayMode         *prometheus.GaugeVec
}

// New creates the collectors, registers them with reg and subscribes to
// cache updates.
func New(reg prometheus.Registerer, cache *telemetry.Cache) *Metrics {
	m := &Metrics{
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 when the MQTT link is up and subscribed.",
		}),
		telemetryMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_messages_total",
			Help:      "Telemetry messages stored, by channel.",
		}, []string{"channel"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_parse_errors_total",
			Help:      "Malformed telemetry payloads discarded, by channel.",
		}, []string{"channel"}),
		awaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "awaits_total",
			Help:      "Waits for fresh telemetry, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		awaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "await_duration_seconds",
			Help:      "Time spent waiting for fresh telemetry.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Command publishes, by kind and result.",
		}, []string{"kind", "result"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last reported temperature in degree celsius.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "humidity_percent",
			Help:      "Last reported relative humidity in percent.",
		}),
		setpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "setpoint_celsius",
			Help:      "Active temperature setpoint in degree celsius.",
		}),
		sensorAlert: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_alert",
			Help:      "1 when the last sensor reading carried an alert.",
		}),
		deviceOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_online",
			Help:      "1 when the device last reported itself online.",
		}),
		relayState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_state",
			Help:      "Current state of relay (1 on, 0 off).",
		}, []string{"relay"}),
		relayMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_mode",
			Help:      "Current mode of relay (0 forced off, 1 forced on, 2 auto, 3 manual).",
		}, []string{"relay"}),
	}

	reg.MustRegister(m.mqttConnected)
	reg.MustRegister(m.telemetryMessages)
	reg.MustRegister(m.parseErrors)
	reg.MustRegister(m.awaits)
	reg.MustRegister(m.awaitDuration)
	reg.MustRegister(m.publishes)
	reg.MustRegister(m.temperature)
	reg.MustRegister(m.humidity)
	reg.MustRegister(m.setpoint)
	reg.MustRegister(m.sensorAlert)
	reg.MustRegister(m.deviceOnline)
	reg.MustRegister(m.relayState)
	reg.MustRegister(m.relayMode)

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "telemetry_age_seconds",
		Help:      "Seconds since the last telemetry update, -1 before the first one.",
	}, func() float64 {
		f := cache.Freshness()
		if !f.Updated {
			return -1
		}
		return f.Age.Seconds()
	}))

	cache.OnUpdate(m.ObserveMessage)
	cache.OnReject(m.ObserveReject)
	return m
}

// SetConnected records the MQTT link state.
func (m *Metrics) SetConnected(connected bool) {
	m.mqttConnected.Set(boolFloat(connected))
}

// ObserveAwait records one wait for fresh telemetry.
func (m *Metrics) ObserveAwait(ch telemetry.Channel, timedOut bool, waited time.Duration) {
	outcome := "fresh"
	if timedOut {
		outcome = "timeout"
	}
	m.awaits.WithLabelValues(string(ch), outcome).Inc()
	m.awaitDuration.Observe(waited.Seconds())
}

// ObservePublish records one publish attempt.
func (m *Metrics) ObservePublish(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.publishes.WithLabelValues(kind, result).Inc()
}

// ObserveMessage updates the value gauges from a stored message.
func (m *Metrics) ObserveMessage(msg *telemetry.Message) {
	m.telemetryMessages.WithLabelValues(string(msg.Channel)).Inc()

	switch v := msg.Value.(type) {
	case telemetry.SensorReading:
		m.temperature.Set(v.Temp)
		m.humidity.Set(v.Hum)
		m.sensorAlert.Set(boolFloat(v.HasAlert()))
		if v.Setpoint != nil {
			m.setpoint.Set(*v.Setpoint)
		}
	case telemetry.RelayStates:
		for id := 1; id <= telemetry.RelayCount; id++ {
			st, ok := v.Get(id)
			if !ok {
				continue
			}
			label := strconv.Itoa(id)
			m.relayState.WithLabelValues(label).Set(boolFloat(st.State))
			m.relayMode.WithLabelValues(label).Set(float64(st.Mode))
		}
	case telemetry.DeviceStatus:
		m.deviceOnline.Set(boolFloat(v.Online()))
	case telemetry.DeviceConfig:
		if v.Setpoint != nil {
			m.setpoint.Set(*v.Setpoint)
		}
	}
}

// ObserveReject counts a malformed payload.
func (m *Metrics) ObserveReject(ch telemetry.Channel, _ error) {
	m.parseErrors.WithLabelValues(string(ch)).Inc()
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
