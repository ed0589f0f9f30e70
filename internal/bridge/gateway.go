package bridge

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/climate-bridge/internal/command"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// Publish kinds reported to the Recorder.
const (
	KindRelay   = "relay"
	KindMode    = "mode"
	KindConfig  = "config"
	KindGeneric = "generic"
)

// Gateway publishes control commands to the device.
//
// Every method returns false, without publishing, when the arguments are
// invalid or the link is down. A true result means the broker accepted the
// message, not that the device acted on it.
type Gateway struct {
	conn     *ConnectionManager
	topics   mqtt.Topics
	logger   Logger
	recorder Recorder
}

// NewGateway creates a gateway publishing through conn.
func NewGateway(conn *ConnectionManager, topics mqtt.Topics) *Gateway {
	return &Gateway{
		conn:     conn,
		topics:   topics,
		logger:   noopLogger{},
		recorder: noopRecorder{},
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// SetRecorder sets the metrics recorder for the gateway.
func (g *Gateway) SetRecorder(recorder Recorder) {
	g.recorder = recorder
}

// SetRelay switches relay id (1..4) on or off.
func (g *Gateway) SetRelay(id int, on bool) bool {
	if err := validateRelay(id); err != nil {
		g.logger.Warn("relay command rejected", "relay", id, "error", err)
		return false
	}
	payload := "OFF"
	if on {
		payload = "ON"
	}
	return g.publish(KindRelay, g.topics.RelayCommand(id), payload)
}

// SetMode changes the operating mode of relay id.
func (g *Gateway) SetMode(id int, mode telemetry.RelayMode) bool {
	if err := validateRelay(id); err != nil {
		g.logger.Warn("mode command rejected", "relay", id, "error", err)
		return false
	}
	if !mode.Valid() {
		g.logger.Warn("mode command rejected", "relay", id, "mode", int(mode), "error", ErrInvalidMode)
		return false
	}
	return g.publish(KindMode, g.topics.RelayMode(id), strconv.Itoa(int(mode)))
}

// SetConfig sends a partial configuration change.
func (g *Gateway) SetConfig(patch telemetry.DeviceConfig) bool {
	if patch.Empty() {
		g.logger.Warn("config command rejected", "error", ErrEmptyConfig)
		return false
	}
	payload, err := command.ConfigPayload(patch)
	if err != nil {
		g.logger.Warn("config command rejected", "error", err)
		return false
	}
	return g.publish(KindConfig, g.topics.ConfigSet(), payload)
}

// Send publishes interpreted commands in order. Each command is attempted
// even after an earlier one fails; the result is true only when all of them
// were published. Nothing is published when the link is down.
func (g *Gateway) Send(cmds []command.DeviceCommand) bool {
	if len(cmds) == 0 {
		return true
	}
	if !g.conn.IsConnected() {
		g.logger.Warn("commands dropped, device link down", "count", len(cmds))
		g.recorder.ObservePublish(KindGeneric, false)
		return false
	}
	ok := true
	for _, cmd := range cmds {
		if !g.Publish(cmd.Topic, cmd.Payload) {
			ok = false
		}
	}
	return ok
}

// Publish sends payload to any topic inside the device namespace, such as
// the speaker text topic.
func (g *Gateway) Publish(topic, payload string) bool {
	if !g.topics.InNamespace(topic) {
		g.logger.Warn("publish rejected", "topic", topic, "error", ErrTopicOutsideNamespace)
		return false
	}
	return g.publish(KindGeneric, topic, payload)
}

func (g *Gateway) publish(kind, topic, payload string) bool {
	err := g.conn.Publish(topic, []byte(payload))
	g.recorder.ObservePublish(kind, err == nil)
	if err != nil {
		g.logger.Warn("publish failed", "topic", topic, "error", err)
		return false
	}
	g.logger.Debug("published", "topic", topic, "payload", payload)
	return true
}

func validateRelay(id int) error {
	if id < 1 || id > telemetry.RelayCount {
		return fmt.Errorf("%w: %d", ErrInvalidRelay, id)
	}
	return nil
}
