// Package telemetry holds the last-known device telemetry for the bridge.
//
// The Cache keeps one cell per logical channel (sensors, relays, status,
// config). Only the MQTT arrival handler writes, through HandleMessage or
// Update; request handlers read lock-free via Get and Snapshot. Every update
// closes the channel's current notification channel, so a reader can wait
// for the next value with Watch instead of polling.
//
// Malformed payloads are rejected without touching the cached value and are
// reported to the caller (and to rejection observers) as ErrMalformedPayload.
//
// Freshness is judged against a staleness threshold: data older than the
// threshold, or no data at all, is stale.
package telemetry
