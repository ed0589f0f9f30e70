// Package influxdb exports telemetry history to InfluxDB v2.
//
// The Client registers as a telemetry cache observer: every stored message
// becomes one or more points that the non-blocking write API batches and
// sends in the background. Write failures never reach the MQTT delivery
// path; they are reported through SetOnError.
//
// Measurements, all tagged with device (the MQTT namespace):
//   - climate: temp, hum, alert and setpoint from {ns}/sensores
//   - relay: state and mode per relay, tagged relay=1..4
//   - device_status: online and the raw status text
//   - device_config: setpoint, hysteresis, temp_max, temp_min
package influxdb
