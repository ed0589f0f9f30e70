// Package command turns free-form Spanish text into device commands.
//
// Interpret is a pure keyword classifier with a fixed precedence:
//
//  1. Queries (temperature, humidity, status, devices, config)
//  2. Turn on, then turn off, with a device alias table
//  3. Relay mode changes ("modo ...")
//  4. Configuration values (hysteresis, max, min, setpoint)
//  5. Help
//  6. Anything else is unrecognized
//
// Matching is case-insensitive substring matching, so a message that mixes
// a query word with an action word resolves as the query, and a message with
// both "enciende" and "apaga" turns the device on. Behavior parity with the
// chat bots this replaces matters more than clever language handling.
//
// The result always carries a non-empty reply and zero, one or four
// DeviceCommands. Interpret never publishes anything itself.
package command
