// Climate Bridge - request/response gateway for an MQTT climate controller
//
// This is the main entry point for the climate bridge. It connects HTTP and
// WebSocket callers to an ESP32 climate controller that only speaks MQTT:
//   - Queries wait a bounded time for fresh telemetry, then answer from cache
//   - Commands (structured or Spanish text) are published fire-and-forget
//   - Telemetry is optionally exported to InfluxDB and Prometheus
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/climate-bridge/internal/api"
	"github.com/nerrad567/climate-bridge/internal/bridge"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/config"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/database"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/climate-bridge/internal/journal"
	"github.com/nerrad567/climate-bridge/internal/metrics"
	"github.com/nerrad567/climate-bridge/internal/telemetry"
	"github.com/nerrad567/climate-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// The broker is not dialled here: the bridge connects lazily on the first
// request, so the process starts even while the broker is down.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting climate bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Best-effort flush on exit
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	topics := mqtt.Topics{Namespace: cfg.Device.Namespace}

	mqttClient := mqtt.New(cfg.MQTT, topics)
	mqttClient.SetLogger(log)
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	// Malformed payloads are logged by the MQTT client and counted by metrics.
	cache := telemetry.NewCache(topics, telemetry.Options{
		StalenessThreshold: cfg.Device.StalenessThreshold,
	})

	svc := bridge.NewService(mqttClient, cache, bridge.Options{
		Topics:         topics,
		ConnectTimeout: cfg.Bridge.ConnectTimeout,
		QueryDeadline:  cfg.Bridge.QueryDeadline,
		QoS:            byte(cfg.MQTT.QoS),
	})
	svc.SetLogger(log)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	svc.SetRecorder(metrics.New(registry, cache))

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB, topics.NS())
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})
		cache.OnUpdate(influxClient.ObserveMessage)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Command journal (optional)
	var journalRepo journal.Repository
	if cfg.Database.Enabled {
		db, dbErr := database.Open(cfg.Database)
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		repo := journal.NewSQLiteRepository(db.DB)
		svc.SetJournal(repo)
		journalRepo = repo
		log.Info("command journal enabled", "path", cfg.Database.Path)
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Metrics:  cfg.Metrics,
			Logger:   log,
			Bridge:   svc,
			Journal:  journalRepo,
			Gatherer: registry,
			Version:  version,
		}

		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	// Warm the cache so the first query has data to fall back on.
	svc.Connection().ConnectAsync()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("climate bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CLIMABRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CLIMABRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
