// Device Settings Service
//
// This is the main entry point for the device settings daemon. It exposes
// three facets of a set-top box to local clients:
//   - Diagnostics: the most active AV decoder status
//   - HDMI input: per-port EDID version, ALLM and VRR support, signal state
//   - Front panel display: LED brightness, state and color, clock settings
//
// Settings are persisted in SQLite and re-applied at start. Events are
// published over MQTT and InfluxDB when enabled, and served over HTTP and
// WebSocket by the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-devicesettings/internal/api"
	"github.com/nerrad567/gray-logic-devicesettings/internal/audit"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal/sim"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
	"github.com/nerrad567/gray-logic-devicesettings/internal/publish"
	"github.com/nerrad567/gray-logic-devicesettings/internal/workqueue"
	"github.com/nerrad567/gray-logic-devicesettings/migrations"
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

// configPathEnv overrides defaultConfigPath.
const configPathEnv = "DEVSETTINGS_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It blocks until ctx is cancelled, then tears everything down in reverse
// start order.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting device settings service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// A .env file is optional; deployments usually set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("ignoring unreadable .env file", "error", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Settings store
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	schema, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	log.Info("database migrations complete", "applied", applied, "schema_version", schema)
	store := persist.NewSQLiteStore(db.DB)

	// Change history is written off the request path.
	changes := audit.NewSQLiteRepository(db.DB)
	changeWriter := audit.NewWriter(changes, log.Component("audit"))
	changeWriter.Start()
	defer changeWriter.Close()

	// Optional sinks
	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient, err := connectInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	// Event queue: every facet callback runs here, in order.
	queue := workqueue.New(log.Component("workqueue"))
	queue.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.WorkQueue.StopTimeout)
		defer cancel()
		if stopErr := queue.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping work queue", "error", stopErr)
		}
	}()

	platform := sim.New(cfg.Facets.HDMIIn.Ports, log.Component("sim"))

	f, err := startFacets(ctx, cfg, platform, store, queue, log)
	if err != nil {
		return err
	}
	defer f.Close()

	// Publisher and commander exist only when there is somewhere to publish.
	// Every setting change is recorded in the history first and then
	// forwarded to the publisher.
	var (
		publisher *publish.Publisher
		published audit.AttributeRecorder
	)
	if mqttClient != nil || influxClient != nil {
		publisher = newPublisher(mqttClient, influxClient, log)
		unregister, regErr := f.Register(publisher)
		if regErr != nil {
			return fmt.Errorf("registering publisher: %w", regErr)
		}
		defer unregister()
		published = publisher

		if mqttClient != nil {
			commander := newCommander(mqttClient, f, changeWriter.Recorder(audit.SourceMQTT, published), log)
			if startErr := commander.Start(); startErr != nil {
				return fmt.Errorf("starting commander: %w", startErr)
			}
			defer func() {
				if stopErr := commander.Stop(); stopErr != nil {
					log.Error("error stopping commander", "error", stopErr)
				}
			}()
		}
	}

	// HTTP API
	var apiServer *api.Server
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log.Component("api"),
			Diagnostics: f.Diagnostics,
			HDMIIn:      f.HDMIIn,
			FPD:         f.FPD,
			Recorder:    changeWriter.Recorder(audit.SourceAPI, published),
			Changes:     changes,
			Version:     version,
		}
		if publisher != nil {
			deps.Publisher = publisher
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		apiServer, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("device settings service started", "service_id", cfg.Service.ID)

	// The group ends on shutdown, or early if the simulated activity
	// driver fails.
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Platform.AnimateInterval > 0 {
		g.Go(func() error {
			if animErr := platform.Animate(gctx, cfg.Platform.AnimateInterval); animErr != nil {
				return fmt.Errorf("simulated activity: %w", animErr)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown signal received, stopping services")
	return nil
}

// getConfigPath returns the config file path from the environment or default.
func getConfigPath() string {
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects to the broker when MQTT is enabled.
//
// Returns:
//   - *mqtt.Client: nil when MQTT is disabled
//   - error: if the broker cannot be reached
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB connects to InfluxDB when it is enabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})

	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// newPublisher builds a Publisher over whichever sinks are connected.
func newPublisher(mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) *publish.Publisher {
	opts := publish.Options{Logger: log.Component("publish")}
	if mqttClient != nil {
		opts.MQTT = mqttClient
	}
	if influxClient != nil {
		opts.Influx = influxClient
	}
	return publish.New(opts)
}

// newCommander builds a Commander for the enabled facets.
func newCommander(mqttClient *mqtt.Client, f *facets, recorder publish.AttributeRecorder, log *logging.Logger) *publish.Commander {
	opts := publish.CommanderOptions{
		Subscriber: mqttClient,
		QoS:        mqttClient.QoS(),
		Recorder:   recorder,
		Logger:     log.Component("commands"),
	}
	if f.HDMIIn != nil {
		opts.HDMIIn = f.HDMIIn
	}
	if f.FPD != nil {
		opts.FPD = f.FPD
	}
	return publish.NewCommander(opts)
}

// healthCheck verifies all connected backends are responding.
//
// Parameters:
//   - ctx: Context for timeout
//   - db: Database connection
//   - mqttClient: MQTT client (may be nil if disabled)
//   - influxClient: InfluxDB client (may be nil if disabled)
//   - apiServer: API server (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}
