// Gray Logic BACnet - BACnet/IP client gateway
//
// This is the main entry point for the Gray Logic BACnet client. It
// discovers BACnet/IP devices on the local network, maintains a merged
// registry of their objects, and exposes them over MQTT, a REST API,
// and WebSocket events.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-bacnet/migrations"

	"github.com/nerrad567/gray-logic-bacnet/internal/api"
	"github.com/nerrad567/gray-logic-bacnet/internal/auth"
	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	bacnetbridge "github.com/nerrad567/gray-logic-bacnet/internal/bridges/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/mdns"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/mqtt"
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

// bridgeStatsInterval is how often bridge counters go to the
// time-series store.
const bridgeStatsInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,cyclop,funlen // startup wiring is inherently sequential
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic BACnet",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Auth repositories; seed the first owner account if the user table
	// is empty.
	userRepo := auth.NewUserRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)
	if _, seedErr := auth.SeedOwner(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding owner account: %w", seedErr)
	}

	// Device registry and local value history
	registry := device.NewRegistry()
	history := device.NewSQLiteValueHistoryRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the BACnet bridge (if enabled)
	var bridge *bacnetbridge.Bridge
	if cfg.BACnet.Enabled {
		bridge, err = startBridge(ctx, cfg, registry, history, mqttClient, influxClient, log)
		if err != nil {
			return fmt.Errorf("starting BACnet bridge: %w", err)
		}
		defer func() {
			log.Info("stopping BACnet bridge")
			bridge.Stop()
		}()

		// Periodic bridge counters for dashboards
		if influxClient != nil {
			go reportBridgeStats(ctx, bridge, influxClient)
		}
	} else {
		log.Info("BACnet bridge disabled")
	}

	// Start the HTTP API
	deps := api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Registry:  registry,
		History:   history,
		UserRepo:  userRepo,
		TokenRepo: tokenRepo,
		MQTT:      mqttClient,
		DB:        db,
		Version:   version,
	}
	// A nil *Bridge must not become a non-nil interface.
	if bridge != nil {
		deps.Bridge = bridge
	}
	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Advertise the API over mDNS
	advertiser := mdns.NewAdvertiser(log)
	zeroconfCfg := cfg.Zeroconf
	if zeroconfCfg.InstanceName == "" {
		zeroconfCfg.InstanceName = cfg.Site.Name
	}
	if err := advertiser.Start(zeroconfCfg, cfg.API.Port, version); err != nil {
		// Discovery is a convenience; the gateway is still reachable.
		log.Warn("mDNS advertisement failed", "error", err)
	}
	defer advertiser.Shutdown()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// mDNS, API, bridge, InfluxDB (if enabled), MQTT, database.

	log.Info("Gray Logic BACnet stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// startBridge builds the transport and the BACnet bridge from
// configuration, starts it, and wires MQTT command ingestion.
func startBridge(
	ctx context.Context,
	cfg *config.Config,
	registry *device.Registry,
	history device.ValueHistoryRepository,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*bacnetbridge.Bridge, error) {
	transport, err := bacnet.NewGobacnetTransport(cfg.BACnet.WhoIsLow, cfg.BACnet.WhoIsHigh)
	if err != nil {
		return nil, fmt.Errorf("creating BACnet transport: %w", err)
	}

	bridgeCfg, err := buildBridgeConfig(cfg, log)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	opts := bacnetbridge.BridgeOptions{
		Config:    bridgeCfg,
		Transport: transport,
		Registry:  registry,
		Publisher: mqttClient,
		History:   history,
		Logger:    log,
	}
	// A nil *influxdb.Client must not become a non-nil interface.
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	bridge, err := bacnetbridge.NewBridge(opts)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("starting bridge: %w", err)
	}

	// Accept writes and reads arriving over MQTT command topics.
	if err := bridge.SubscribeCommands(mqttClient); err != nil {
		bridge.Stop()
		return nil, fmt.Errorf("subscribing to command topics: %w", err)
	}

	log.Info("BACnet bridge started",
		"whois_low", cfg.BACnet.WhoIsLow,
		"whois_high", cfg.BACnet.WhoIsHigh,
	)
	return bridge, nil
}

// buildBridgeConfig maps the YAML-level BACnet section onto the bridge
// configuration, resolving property and object-type names.
func buildBridgeConfig(cfg *config.Config, log *logging.Logger) (bacnetbridge.Config, error) {
	disposition, ok := bacnet.ParseDisposition(cfg.BACnet.COVDisposition)
	if !ok {
		return bacnetbridge.Config{}, fmt.Errorf("invalid cov_disposition %q", cfg.BACnet.COVDisposition)
	}

	return bacnetbridge.Config{
		WhoIsInterval:        cfg.WhoIsIntervalDuration(),
		PollInterval:         cfg.PollIntervalDuration(),
		RequestTimeout:       cfg.RequestTimeoutDuration(),
		DeviceProperties:     resolveProperties(cfg.BACnet.DeviceProperties, log),
		OnceProperties:       resolveProperties(cfg.BACnet.OnceProperties, log),
		PollProperties:       resolveProperties(cfg.BACnet.PollProperties, log),
		SubscribableTypes:    resolveObjectTypes(cfg.BACnet.ObjectTypes, log),
		SubscriptionLifetime: cfg.BACnet.SubscriptionLifetime,
		COVDisposition:       disposition,
	}, nil
}

// resolveProperties maps property names to identifiers, dropping unknown
// names with a warning. An empty result leaves the bridge defaults in place.
func resolveProperties(names []string, log *logging.Logger) []bacnet.PropertyID {
	var props []bacnet.PropertyID
	for _, name := range names {
		p, ok := bacnet.PropertyFromName(name)
		if !ok {
			log.Warn("unknown property name in config, skipping", "property", name)
			continue
		}
		props = append(props, p)
	}
	return props
}

// resolveObjectTypes maps object type names to identifiers, dropping
// unknown names with a warning.
func resolveObjectTypes(names []string, log *logging.Logger) []bacnet.ObjectType {
	var types []bacnet.ObjectType
	for _, name := range names {
		t, ok := bacnet.ObjectTypeFromName(name)
		if !ok {
			log.Warn("unknown object type in config, skipping", "object_type", name)
			continue
		}
		types = append(types, t)
	}
	return types
}

// reportBridgeStats periodically records bridge counters in the
// time-series store.
func reportBridgeStats(ctx context.Context, bridge *bacnetbridge.Bridge, influxClient *influxdb.Client) {
	ticker := time.NewTicker(bridgeStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := bridge.GetMetrics()
			influxClient.WriteBridgeStats(stats.DevicesDiscovered, stats.ObjectsTracked, stats.ActiveSubscriptions)
		case <-ctx.Done():
			return
		}
	}
}
