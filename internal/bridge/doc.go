// Package bridge connects HTTP-facing operations to the climate controller
// over MQTT.
//
// The package is built from four parts that share one process-wide
// transport:
//
//   - ConnectionManager dials lazily, at most once at a time, and restores
//     the telemetry subscriptions on every (re)connect.
//   - Correlator waits for the next value of a telemetry channel, bounded
//     by a deadline, and falls back to the cached value on timeout.
//   - Gateway publishes relay, mode and configuration commands. It refuses
//     to publish while the link is down.
//   - Service combines them into the query and command operations served
//     by the API.
//
// None of these operations return transport errors to the caller. Failures
// are logged and surface as state: a connection in StateError, a query
// result with TimedOut set, or a command result with Success false.
package bridge
