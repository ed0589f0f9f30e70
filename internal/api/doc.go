// Package api implements the HTTP and WebSocket surface of the climate bridge.
//
// Endpoints (all JSON):
//
//	GET  /api/v1/health              service and MQTT link status
//	GET  /api/v1/telemetry?wait_ms=N latest telemetry, optionally after waiting
//	                                 up to N ms for a fresh sensor reading
//	POST /api/v1/commands            control_relay, set_mode, update_config or
//	                                 interpret a text command
//	GET  /api/v1/journal?limit=N     recent commands (404 when the journal is off)
//	GET  /api/v1/ws                  WebSocket for live telemetry and commands
//	GET  /metrics                    Prometheus exposition
//
// Every telemetry update is broadcast to WebSocket clients subscribed to
// "telemetry.<channel>" (sensors, relays, status, config).
//
// # Graceful Degradation
//
// The server never fails a request because the device or broker is
// unreachable. Queries answer from the cache with staleness flags and
// commands report success=false. Only malformed requests get a 4xx.
package api
