package bacnet

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/mqtt"
)

// HealthStatus is the bridge's reported health state.
type HealthStatus string

// Health states published on the bridge health topic.
const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
	HealthOffline  HealthStatus = "offline"
)

// HealthMessage is the JSON payload published on the health topic.
type HealthMessage struct {
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	DeviceCount   int          `json:"device_count"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Timestamp     time.Time    `json:"timestamp"`
}

// HealthReporter manages periodic health status reporting.
// It publishes health messages to MQTT at regular intervals.
type HealthReporter struct {
	startTime   time.Time
	interval    time.Duration
	publisher   StatePublisher
	deviceCount func() int
	topics      mqtt.Topics

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages. May be nil,
	// in which case reporting is a no-op.
	Publisher StatePublisher

	// DeviceCount reports the number of discovered devices.
	DeviceCount func() int
}

// NewHealthReporter creates a new health reporter.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	// A typed-nil publisher must behave like an absent one.
	if isNilValue(cfg.Publisher) {
		cfg.Publisher = nil
	}

	return &HealthReporter{
		startTime:   time.Now(),
		interval:    interval,
		publisher:   cfg.Publisher,
		deviceCount: cfg.DeviceCount,
		done:        make(chan struct{}),
	}
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// Start begins periodic health reporting.
// Must be called after creation. Call Stop to shut down.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop gracefully stops health reporting.
// Publishes a final "stopping" status before returning.
// Safe to call multiple times (uses sync.Once).
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		// Best-effort during shutdown, nothing we can do if it fails
		_ = h.publishStatus(HealthStopping, "")
	})
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// LWTTopic returns the topic for the Last Will and Testament.
func (h *HealthReporter) LWTTopic() string {
	return h.topics.BridgeHealth("bacnet")
}

// LWTPayload returns the Last Will and Testament message payload. Set as
// the MQTT will message during connection so consumers see "offline" when
// the process dies without a clean shutdown.
func (h *HealthReporter) LWTPayload() ([]byte, error) {
	return json.Marshal(HealthMessage{
		Status:    HealthOffline,
		Reason:    "connection lost",
		Timestamp: time.Now().UTC(),
	})
}

// reportLoop runs the periodic health reporting.
func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	return HealthHealthy, ""
}

// publishStatus publishes a health status message.
func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	count := 0
	if h.deviceCount != nil {
		count = h.deviceCount()
	}

	payload, err := json.Marshal(HealthMessage{
		Status:        status,
		Reason:        reason,
		DeviceCount:   count,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	// QoS 1, retained: late subscribers see the last known status.
	return h.publisher.Publish(h.topics.BridgeHealth("bacnet"), payload, 1, true)
}

// logError logs an error if logger is set.
func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err.Error())
	}
}
