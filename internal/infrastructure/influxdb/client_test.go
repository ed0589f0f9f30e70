package influxdb_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/config"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "climabridge-dev-token",
		Org:           "climabridge",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the local InfluxDB or skips the test.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("set RUN_INTEGRATION to run InfluxDB tests")
	}
	client, err := influxdb.Connect(testConfig(), "esp32")
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func lines(points []*write.Point) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, strings.TrimSpace(write.PointToLineProtocol(p, time.Second)))
	}
	return out
}

func TestPoints(t *testing.T) {
	ts := "1772366400"

	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{
			name:  "sensors",
			value: telemetry.SensorReading{Temp: 24.5, Hum: 51, Alert: "OK", Setpoint: telemetry.Float(24)},
			want:  []string{`climate,device=esp32 alert="OK",hum=51,setpoint=24,temp=24.5 ` + ts},
		},
		{
			name: "relays",
			value: telemetry.RelayStates{
				"r1": {State: true, Mode: telemetry.ModeManual},
				"r3": {State: false, Mode: telemetry.ModeAuto},
			},
			want: []string{
				`relay,device=esp32,relay=1 mode=3i,state=true ` + ts,
				`relay,device=esp32,relay=3 mode=2i,state=false ` + ts,
			},
		},
		{
			name:  "status",
			value: telemetry.DeviceStatus("online"),
			want:  []string{`device_status,device=esp32 online=true,status="online" ` + ts},
		},
		{
			name:  "config",
			value: telemetry.DeviceConfig{Hysteresis: telemetry.Float(1.5), TempMax: telemetry.Float(30)},
			want:  []string{`device_config,device=esp32 hysteresis=1.5,temp_max=30 ` + ts},
		},
		{
			name:  "empty config",
			value: telemetry.DeviceConfig{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lines(influxdb.Points("esp32", &telemetry.Message{Value: tt.value, ReceivedAt: at}))
			if len(got) != len(tt.want) {
				t.Fatalf("Points() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("point %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg, "esp32"); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	if _, err := influxdb.Connect(cfg, "esp32"); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClient_ExportAndHealth(t *testing.T) {
	client := connectOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.ObserveMessage(&telemetry.Message{
		Channel:    telemetry.ChannelSensors,
		Value:      telemetry.SensorReading{Temp: 22, Hum: 45, Alert: telemetry.AlertOK},
		ReceivedAt: time.Now(),
	})
	client.Flush()

	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}

func TestClient_CloseStopsExport(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	// Both are no-ops once closed.
	client.ObserveMessage(&telemetry.Message{Value: telemetry.DeviceStatus("online"), ReceivedAt: time.Now()})
	client.Flush()
}
