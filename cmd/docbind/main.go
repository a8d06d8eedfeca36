// docbind - document store connection service
//
// This is the main entry point for docbind. It owns one logical connection
// to a document store (MongoDB or an embedded SQLite document store),
// registers the configured models and plugins against it, and reports
// connection state over MQTT, InfluxDB and the admin API.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/docbind/internal/api"
	"github.com/nerrad567/docbind/internal/auth"
	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/internal/driver"
	"github.com/nerrad567/docbind/internal/driver/mongodb"
	"github.com/nerrad567/docbind/internal/driver/sqlite"
	"github.com/nerrad567/docbind/internal/infrastructure/config"
	"github.com/nerrad567/docbind/internal/infrastructure/influxdb"
	"github.com/nerrad567/docbind/internal/infrastructure/logging"
	"github.com/nerrad567/docbind/internal/infrastructure/mqtt"
	"github.com/nerrad567/docbind/internal/model"
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

// shutdownTimeout bounds the final Disconnect.
const shutdownTimeout = 15 * time.Second

func main() {
	// "docbind hash-password" reads a password on stdin and prints the
	// value for security.users[].password_hash.
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting docbind",
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
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Observers must exist before the Database is created.
	var observers []database.Observer

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, log.Logger)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		status := mqtt.NewStatusPublisher(mqttClient, byte(cfg.MQTT.QoS), log.Logger) //nolint:gosec // QoS validated to 0-2
		mqttClient.SetOnConnect(status.Republish)
		observers = append(observers, status)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var metrics *influxdb.Metrics
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		metrics = influxdb.NewMetrics(influxClient)
		observers = append(observers, metrics)
	} else {
		log.Info("InfluxDB disabled")
	}

	// The hub observes state changes before the API server exists.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log)
		observers = append(observers, hub)
	}

	db, err := openDatabase(cfg, log, observers)
	if err != nil {
		return err
	}

	models, err := register(db, cfg)
	if err != nil {
		return err
	}
	log.Info("registry initialised",
		"models", len(db.Models()),
		"plugins", len(db.Plugins()),
	)
	if metrics != nil {
		metrics.RecordRegistry(db.Name(), len(db.Models()), len(db.Plugins()))
	}

	// Disconnect runs after the listeners below have stopped.
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if db.State() == database.StateDisconnected {
			return
		}
		if discErr := db.Disconnect(stopCtx); discErr != nil {
			log.Error("error disconnecting database", "error", discErr)
		}
	}()

	if _, err := db.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	log.Info("database connected", "target", db.Target())

	for _, m := range models {
		if err := m.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensuring indexes: %w", err)
		}
	}

	if mqttClient != nil {
		listener := mqtt.NewCommandListener(mqttClient, db, byte(cfg.MQTT.QoS), log.Logger) //nolint:gosec // QoS validated to 0-2
		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("starting MQTT command listener: %w", err)
		}
		defer func() {
			if stopErr := listener.Stop(); stopErr != nil && !errors.Is(stopErr, mqtt.ErrNotConnected) {
				log.Error("error stopping MQTT command listener", "error", stopErr)
			}
		}()
	}

	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Security:    cfg.Security,
			Logger:      log,
			Database:    db,
			Hub:         hub,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. MQTT command listener
	// 3. Database
	// 4. InfluxDB (if enabled)
	// 5. MQTT (if enabled)

	log.Info("docbind stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DOCBIND_CONFIG environment variable if set, otherwise default.
// hashPassword hashes the first line of r and writes the PHC string to w.
func hashPassword(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

func getConfigPath() string {
	if path := os.Getenv("DOCBIND_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openDatabase selects the driver named in the configuration and creates
// the Database with the given observers.
func openDatabase(cfg *config.Config, log *logging.Logger, observers []database.Observer) (*database.Database, error) {
	dbLog := log.With("driver", cfg.Database.Driver)

	dbCfg := database.Config{
		URL:      cfg.Database.URL,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		Options: database.ConnectOptions{
			Database: cfg.Database.DefaultDatabase,
			AppName:  cfg.Database.AppName,
			Timeout:  cfg.GetConnectTimeout(),
		},
	}

	var drv database.Driver
	switch cfg.Database.Driver {
	case config.DriverMongoDB:
		drv = mongodb.NewDriver(mongodb.WithLogger(dbLog.Logger))
	case config.DriverSQLite:
		dbCfg.Scheme = sqlite.Scheme
		drv = sqlite.NewDriver(sqlite.Options{
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, sqlite.WithLogger(dbLog.Logger))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	opts := []database.Option{
		database.WithName(cfg.Database.Name),
		database.WithLogger(dbLog.Logger),
	}
	for _, o := range observers {
		opts = append(opts, database.WithObserver(o))
	}

	db, err := database.New(dbCfg, drv, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	return db, nil
}

// register adds the configured plugins, then the configured models, so
// every model receives every configured plugin.
func register(db *database.Database, cfg *config.Config) ([]*model.Base, error) {
	for _, spec := range cfg.Plugins {
		p, err := model.ParsePlugin(spec)
		if err != nil {
			return nil, fmt.Errorf("parsing plugin: %w", err)
		}
		if err := db.UsePlugin(p); err != nil {
			return nil, fmt.Errorf("registering plugin %s: %w", p.Name(), err)
		}
	}

	models := make([]*model.Base, 0, len(cfg.Models))
	dbModels := make([]database.Model, 0, len(cfg.Models))
	for _, mc := range cfg.Models {
		opts := []model.Option{}
		if mc.Collection != "" {
			opts = append(opts, model.WithCollection(mc.Collection))
		}
		for _, ix := range mc.Indexes {
			opts = append(opts, model.WithIndex(driver.IndexSpec{
				Field:      ix.Field,
				Unique:     ix.Unique,
				Descending: ix.Descending,
			}))
		}
		m := model.New(mc.Name, opts...)
		models = append(models, m)
		dbModels = append(dbModels, m)
	}

	if err := db.RegisterModels(dbModels...); err != nil {
		return nil, fmt.Errorf("registering models: %w", err)
	}
	return models, nil
}
