package bridge

import "errors"

// Domain-specific errors for the bridge.
var (
	// ErrNotConnected is returned when publishing without a live connection.
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrInvalidRelay indicates a relay id outside 1..4.
	ErrInvalidRelay = errors.New("bridge: invalid relay id")

	// ErrInvalidMode indicates an unknown relay mode.
	ErrInvalidMode = errors.New("bridge: invalid relay mode")

	// ErrEmptyConfig indicates a configuration change with no fields set.
	ErrEmptyConfig = errors.New("bridge: empty configuration change")

	// ErrTopicOutsideNamespace indicates a publish outside the device namespace.
	ErrTopicOutsideNamespace = errors.New("bridge: topic outside device namespace")
)
