package bridge

import (
	"time"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// Transport is the MQTT link the bridge drives. *mqtt.Client implements it.
type Transport interface {
	Connect(timeout time.Duration) error
	IsConnected() bool
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	SetOnConnect(callback func())
	SetOnDisconnect(callback func(err error))
	Close() error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder receives bridge events for metrics.
type Recorder interface {
	SetConnected(connected bool)
	ObserveAwait(ch telemetry.Channel, timedOut bool, waited time.Duration)
	ObservePublish(kind string, ok bool)
}

type noopRecorder struct{}

func (noopRecorder) SetConnected(bool)                                  {}
func (noopRecorder) ObserveAwait(telemetry.Channel, bool, time.Duration) {}
func (noopRecorder) ObservePublish(string, bool)                        {}
