package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/climate-bridge/internal/command"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/internal/journal"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// DefaultQueryDeadline bounds a query wait when Options leaves it unset.
const DefaultQueryDeadline = 3 * time.Second

// Actions accepted by Execute.
const (
	ActionControlRelay = "control_relay"
	ActionSetMode      = "set_mode"
	ActionUpdateConfig = "update_config"
	ActionInterpret    = "interpret"
	ActionSpeak        = "speak"
)

// Replies produced by the service itself.
const (
	MessageOffline       = "dispositivo sin conexión"
	MessageUnknownAction = "acción no reconocida"
	MessageConfigUpdated = "Configuración actualizada"
	MessageNoDevice      = "No puedo conectarme al sistema ESP32. Verifica que esté encendido."
	MessageInvalidRelay  = "relay inválido"
	MessageInvalidMode   = "modo inválido"
	MessageMissingState  = "falta el estado del relay"
	MessageEmptyConfig   = "configuración vacía"
	MessageEmptyText     = "texto vacío"
	MessageSpoken        = "Mensaje enviado al altavoz"
)

// Journal records executed commands.
type Journal interface {
	Record(ctx context.Context, entry *journal.Entry) error
}

// Options configures a Service.
type Options struct {
	Topics         mqtt.Topics
	ConnectTimeout time.Duration
	QueryDeadline  time.Duration
	QoS            byte
}

// Service implements the query and command operations over one transport.
type Service struct {
	conn       *ConnectionManager
	cache      *telemetry.Cache
	correlator *Correlator
	gateway    *Gateway
	topics     mqtt.Topics
	deadline   time.Duration

	journal Journal
	logger  Logger
}

// NewService wires a connection manager, correlator and gateway around
// transport and cache. Nothing is dialled until the first operation.
func NewService(transport Transport, cache *telemetry.Cache, opts Options) *Service {
	if opts.QueryDeadline <= 0 {
		opts.QueryDeadline = DefaultQueryDeadline
	}
	if opts.Topics.Namespace == "" {
		opts.Topics.Namespace = mqtt.DefaultNamespace
	}

	conn := NewConnectionManager(transport, cache, ConnectionOptions{
		ConnectTimeout: opts.ConnectTimeout,
		QoS:            opts.QoS,
	})

	return &Service{
		conn:       conn,
		cache:      cache,
		correlator: NewCorrelator(conn, cache),
		gateway:    NewGateway(conn, opts.Topics),
		topics:     opts.Topics,
		deadline:   opts.QueryDeadline,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the service and its parts.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
	s.conn.SetLogger(logger)
	s.gateway.SetLogger(logger)
}

// SetRecorder sets the metrics recorder for every part.
func (s *Service) SetRecorder(recorder Recorder) {
	s.conn.SetRecorder(recorder)
	s.correlator.SetRecorder(recorder)
	s.gateway.SetRecorder(recorder)
}

// SetJournal enables command journaling.
func (s *Service) SetJournal(j Journal) {
	s.journal = j
}

// Connection returns the connection manager.
func (s *Service) Connection() *ConnectionManager {
	return s.conn
}

// Gateway returns the control gateway.
func (s *Service) Gateway() *Gateway {
	return s.gateway
}

// Cache returns the telemetry cache.
func (s *Service) Cache() *telemetry.Cache {
	return s.cache
}

// QueryDeadline returns the default query wait.
func (s *Service) QueryDeadline() time.Duration {
	return s.deadline
}

// QueryResult is the answer to Query.
type QueryResult struct {
	Sensors      *telemetry.SensorReading `json:"sensors"`
	Relays       telemetry.RelayStates    `json:"relays,omitempty"`
	DeviceStatus telemetry.DeviceStatus   `json:"device_status,omitempty"`
	Config       *telemetry.DeviceConfig  `json:"config,omitempty"`
	Connected    bool                     `json:"mqtt_connected"`

	// AgeSeconds is nil when nothing was ever received.
	AgeSeconds *int64     `json:"data_age_seconds"`
	IsStale    bool       `json:"is_stale"`
	TimedOut   bool       `json:"timed_out"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Query returns the latest telemetry. With wait > 0 it first waits up to
// wait for a fresh sensor reading; with wait == 0 it answers from the cache
// at once and starts connecting in the background if needed.
func (s *Service) Query(ctx context.Context, wait time.Duration) QueryResult {
	timedOut := false
	if wait > 0 {
		timedOut = s.correlator.AwaitValue(ctx, telemetry.ChannelSensors, wait).TimedOut
	} else {
		s.conn.ConnectAsync()
	}

	snap := s.cache.Snapshot()
	fresh := s.cache.Freshness()

	res := QueryResult{
		Connected: s.conn.IsConnected(),
		IsStale:   fresh.IsStale,
		TimedOut:  timedOut,
	}
	if r, ok := snap.Sensors(); ok {
		res.Sensors = &r
	}
	if relays, ok := snap.Relays(); ok {
		res.Relays = relays
	}
	if st, ok := snap.Status(); ok {
		res.DeviceStatus = st
	}
	if cfg, ok := snap.Config(); ok {
		res.Config = &cfg
	}
	if fresh.Updated {
		age := int64(fresh.Age / time.Second)
		res.AgeSeconds = &age
		updated := fresh.LastUpdated.UTC()
		res.UpdatedAt = &updated
	}
	return res
}

// SwitchState is a relay on/off value. It decodes from a JSON boolean or
// from the strings "ON" and "OFF" (any case).
type SwitchState bool

// UnmarshalJSON implements json.Unmarshaler.
func (s *SwitchState) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = SwitchState(b)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("relay state must be a boolean or ON/OFF: %w", err)
	}
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "ON":
		*s = true
	case "OFF":
		*s = false
	default:
		return fmt.Errorf("relay state must be ON or OFF, got %q", text)
	}
	return nil
}

// Request is a command for Execute.
type Request struct {
	Action  string                  `json:"action"`
	RelayID int                     `json:"relay,omitempty"`
	State   *SwitchState            `json:"state,omitempty"`
	Mode    *int                    `json:"mode,omitempty"`
	Config  *telemetry.DeviceConfig `json:"config,omitempty"`
	Text    string                  `json:"text,omitempty"`

	// Source names the caller in the journal, e.g. "api" or "ws".
	Source string `json:"-"`
}

// Result is the outcome of Execute.
type Result struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
	Intent   command.Intent          `json:"intent,omitempty"`
	Commands []command.DeviceCommand `json:"commands,omitempty"`
}

// Execute runs req and records it in the journal.
func (s *Service) Execute(ctx context.Context, req Request) Result {
	var res Result
	switch req.Action {
	case ActionControlRelay:
		res = s.controlRelay(ctx, req)
	case ActionSetMode:
		res = s.setMode(ctx, req)
	case ActionUpdateConfig:
		res = s.updateConfig(ctx, req)
	case ActionInterpret:
		res = s.interpret(ctx, req.Text)
	case ActionSpeak:
		res = s.speak(ctx, req.Text)
	default:
		res = Result{Message: MessageUnknownAction}
	}

	s.logger.Info("command executed",
		"action", req.Action,
		"intent", string(res.Intent),
		"commands", len(res.Commands),
		"success", res.Success,
	)
	s.record(ctx, req, res)
	return res
}

// link dials the broker before a publish, bounded by the connect timeout
// and ctx. A failed dial leaves the gateway to report the link as down.
func (s *Service) link(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.conn.timeout)
	defer cancel()
	if st := s.conn.EnsureConnected(ctx); st != StateConnected {
		s.logger.Debug("command link unavailable", "state", st.String())
	}
}

func (s *Service) controlRelay(ctx context.Context, req Request) Result {
	if validateRelay(req.RelayID) != nil {
		return Result{Message: MessageInvalidRelay}
	}
	if req.State == nil {
		return Result{Message: MessageMissingState}
	}
	on := bool(*req.State)
	s.link(ctx)
	if !s.gateway.SetRelay(req.RelayID, on) {
		return Result{Message: MessageOffline}
	}
	return Result{Success: true, Message: command.DescribeSwitch(req.RelayID, on)}
}

func (s *Service) setMode(ctx context.Context, req Request) Result {
	if validateRelay(req.RelayID) != nil {
		return Result{Message: MessageInvalidRelay}
	}
	if req.Mode == nil || !telemetry.RelayMode(*req.Mode).Valid() {
		return Result{Message: MessageInvalidMode}
	}
	mode := telemetry.RelayMode(*req.Mode)
	s.link(ctx)
	if !s.gateway.SetMode(req.RelayID, mode) {
		return Result{Message: MessageOffline}
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("He cambiado %s a modo %s", command.DeviceName(req.RelayID), mode),
	}
}

func (s *Service) updateConfig(ctx context.Context, req Request) Result {
	if req.Config == nil || req.Config.Empty() {
		return Result{Message: MessageEmptyConfig}
	}
	s.link(ctx)
	if !s.gateway.SetConfig(*req.Config) {
		return Result{Message: MessageOffline}
	}
	return Result{Success: true, Message: MessageConfigUpdated}
}

// speak sends text to the device speaker.
func (s *Service) speak(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Message: MessageEmptyText}
	}
	s.link(ctx)
	if !s.gateway.Publish(s.topics.TTSText(), text) {
		return Result{Message: MessageOffline}
	}
	return Result{Success: true, Message: MessageSpoken}
}

// interpret classifies text, refreshing telemetry first for queries.
func (s *Service) interpret(ctx context.Context, text string) Result {
	in := command.Interpret(text, s.cache.Snapshot(), s.topics)

	if ch, ok := awaitChannel(in.Intent); ok {
		s.correlator.AwaitValue(ctx, ch, s.deadline)
		in = command.Interpret(text, s.cache.Snapshot(), s.topics)

		if _, have := s.cache.Snapshot().Sensors(); !have && in.Intent.NeedsSensors() && !s.conn.IsConnected() {
			in.Reply = MessageNoDevice
		}
	}

	res := Result{Success: true, Message: in.Reply, Intent: in.Intent, Commands: in.Commands}
	if len(in.Commands) == 0 {
		return res
	}
	s.link(ctx)
	if !s.gateway.Send(in.Commands) {
		res.Success = false
		res.Message = MessageOffline
	}
	return res
}

// awaitChannel is the telemetry channel a query intent reads.
func awaitChannel(intent command.Intent) (telemetry.Channel, bool) {
	switch intent {
	case command.IntentQueryTemperature, command.IntentQueryHumidity, command.IntentQueryStatus:
		return telemetry.ChannelSensors, true
	case command.IntentQueryDevices:
		return telemetry.ChannelRelays, true
	case command.IntentQueryConfig:
		return telemetry.ChannelConfig, true
	}
	return "", false
}

func (s *Service) record(ctx context.Context, req Request, res Result) {
	if s.journal == nil {
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	entry := &journal.Entry{
		Action:   req.Action,
		Source:   source,
		Text:     req.Text,
		Intent:   res.Intent,
		Commands: res.Commands,
		Success:  res.Success,
		Message:  res.Message,
	}
	if entry.Action == "" {
		entry.Action = "unknown"
	}

	// The request may already be cancelled; the entry is still written.
	if err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("journal write failed", "action", req.Action, "error", err)
	}
}
