package bacnet

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/mqtt"
)

// Bridge orchestrates BACnet discovery, synchronization, and publication.
// It handles:
//   - Who-Is solicitation and I-Am tracking
//   - Device and object property reads with bounded fallback retries
//   - COV subscription management and notification ingestion
//   - Periodic polling of present-value-class properties
//   - Publishing merged values to MQTT, history, and the time-series store
//
// Thread Safety: All methods are safe for concurrent use. Completion
// handlers and inbound notifications are serialized behind one mutex.
type Bridge struct {
	cfg       Config
	transport bacnet.Transport
	registry  *device.Registry
	publisher StatePublisher                // Optional MQTT publication
	history   device.ValueHistoryRepository // Optional local history
	metrics   MetricsWriter                 // Optional time-series writes

	ids    *allocator
	health *HealthReporter
	topics mqtt.Topics

	// mu serializes completion handlers, inbound notifications, and the
	// registry reads that drive retry and discovery decisions.
	mu         sync.Mutex
	subscribed map[subscriptionKey]bool

	// Shutdown coordination
	done      chan struct{}
	inflight  sync.WaitGroup
	loops     sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger Logger
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatePublisher is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type StatePublisher interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// MetricsWriter records numeric object values in the time-series store.
// Satisfied by the InfluxDB client via an adapter in main.
type MetricsWriter interface {
	WriteObjectValue(deviceID, objectID, property string, value float64)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the bridge behaviour configuration.
	Config Config

	// Transport is the BACnet protocol stack.
	Transport bacnet.Transport

	// Registry is the device registry the bridge writes into.
	Registry *device.Registry

	// Publisher is optional MQTT publication. If nil, the bridge
	// operates without MQTT.
	Publisher StatePublisher

	// History is optional local value history. If nil, merges are not
	// recorded.
	History device.ValueHistoryRepository

	// Metrics is optional time-series output. If nil, no metrics are
	// written.
	Metrics MetricsWriter

	// Logger is optional structured logging.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	// Optional deps arrive through interfaces; a caller passing a nil
	// *mqtt.Client or nil *influxdb.Client produces a non-nil interface
	// wrapping a nil pointer, which the nil guards below would miss.
	if isNilValue(opts.Publisher) {
		opts.Publisher = nil
	}
	if isNilValue(opts.History) {
		opts.History = nil
	}
	if isNilValue(opts.Metrics) {
		opts.Metrics = nil
	}
	if isNilValue(opts.Logger) {
		opts.Logger = nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:        opts.Config.withDefaults(),
		transport:  opts.Transport,
		registry:   opts.Registry,
		publisher:  opts.Publisher,
		history:    opts.History,
		metrics:    opts.Metrics,
		ids:        newAllocator(),
		subscribed: make(map[subscriptionKey]bool),
		done:       make(chan struct{}),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		logger:     logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Interval:    b.cfg.HealthInterval,
		Publisher:   opts.Publisher,
		DeviceCount: opts.Registry.DeviceCount,
	})
	b.health.SetLogger(logger)

	return b, nil
}

// Start begins bridge operation: registers the inbound handler, announces
// presence, solicits peers, and starts the polling and health loops.
func (b *Bridge) Start(ctx context.Context) error {
	b.transport.SetHandler(b)

	// Announce presence first so peers doing their own discovery see us.
	// Not every stack supports an unsolicited I-Am; that is not fatal.
	if err := b.transport.Announce(b.ctx); err != nil {
		b.logger.Debug("presence announcement unavailable", "reason", err.Error())
	}

	b.solicit()

	b.loops.Add(1)
	go b.runPoller()

	b.health.Start(ctx)

	b.logger.Info("bacnet bridge started",
		"whois_interval", b.cfg.WhoIsInterval.String(),
		"poll_interval", b.cfg.PollInterval.String())
	return nil
}

// Stop gracefully shuts down the bridge. In-flight requests are allowed
// to finish; their completions run before Stop returns.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.health.Stop()
		b.loops.Wait()
		b.inflight.Wait()
		b.logger.Info("bacnet bridge stopped")
	})
}

// stopped reports whether Stop has been called.
func (b *Bridge) stopped() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Solicit broadcasts an on-demand Who-Is. Answers arrive asynchronously
// via the inbound handler.
func (b *Bridge) Solicit() error {
	if b.stopped() {
		return ErrBridgeStopped
	}
	b.solicit()
	return nil
}

// solicit broadcasts a Who-Is on its own goroutine. Answers arrive via
// HandleIAm.
func (b *Bridge) solicit() {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()

		ctx, cancel := context.WithTimeout(b.ctx, b.cfg.RequestTimeout)
		defer cancel()

		if err := b.transport.Solicit(ctx); err != nil {
			b.logger.Warn("who-is solicitation failed", "error", err.Error())
		}
	}()
}

// stateMessage is the MQTT payload published after every merge.
type stateMessage struct {
	DeviceID   string            `json:"device_id"`
	ObjectID   string            `json:"object_id"`
	Properties device.Properties `json:"properties"`
	Source     string            `json:"source"`
	Timestamp  time.Time         `json:"timestamp"`
}

// afterMerge publishes a merged property set to MQTT, records history,
// and writes numeric present values to the time-series store.
// Called with b.mu held.
func (b *Bridge) afterMerge(deviceID, objectID bacnet.ObjectID, props device.Properties, source string) {
	if b.publisher != nil {
		msg := stateMessage{
			DeviceID:   deviceID.String(),
			ObjectID:   objectID.String(),
			Properties: props,
			Source:     source,
			Timestamp:  time.Now().UTC(),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			b.logger.Error("failed to marshal state message", "error", err.Error())
		} else {
			topic := b.topics.BridgeState("bacnet", deviceID.String()+"/"+objectID.String())
			if err := b.publisher.Publish(topic, payload, 1, true); err != nil {
				b.logger.Error("failed to publish state", "topic", topic, "error", err.Error())
			}
		}
	}

	if b.history != nil {
		if err := b.history.RecordMerge(b.ctx, deviceID, objectID, props, source); err != nil {
			b.logger.Warn("value history record skipped",
				"object", objectID.String(),
				"reason", err.Error())
		}
	}

	if b.metrics != nil {
		if v, ok := props[bacnet.PropPresentValue]; ok {
			if f, ok := numericValue(v); ok {
				b.metrics.WriteObjectValue(deviceID.String(), objectID.String(),
					bacnet.PropPresentValue.String(), f)
			}
		}
	}
}

// isNilValue reports whether an optional interface dependency is nil,
// including the typed-nil case where the interface wraps a nil pointer.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// numericValue extracts a float64 from decoded present values. Enumerated
// and unsigned values chart fine as floats.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case uint32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Status              string
	DevicesDiscovered   int
	ObjectsTracked      int
	ActiveSubscriptions int
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() BridgeMetrics {
	stats := b.registry.GetStats()

	b.mu.Lock()
	active := 0
	for _, ok := range b.subscribed {
		if ok {
			active++
		}
	}
	b.mu.Unlock()

	status := "healthy"
	if b.stopped() {
		status = "stopped"
	}

	return BridgeMetrics{
		Status:              status,
		DevicesDiscovered:   stats.TotalDevices,
		ObjectsTracked:      stats.TotalObjects,
		ActiveSubscriptions: active,
	}
}
