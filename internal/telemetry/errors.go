package telemetry

import "errors"

// Domain errors for the telemetry package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, telemetry.ErrMalformedPayload) {
//	    // previous value is still cached
//	}
var (
	// ErrUnknownTopic is returned when a message arrives on a topic the cache does not track.
	ErrUnknownTopic = errors.New("telemetry: unknown topic")

	// ErrUnknownChannel is returned when a channel name is not one of the tracked channels.
	ErrUnknownChannel = errors.New("telemetry: unknown channel")

	// ErrMalformedPayload is returned when a payload cannot be decoded for its channel.
	ErrMalformedPayload = errors.New("telemetry: malformed payload")
)
