// Package mdns advertises the HTTP API over multicast DNS so local
// tooling can find the gateway without configuration.
package mdns

import (
	"fmt"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/logging"
)

// serviceType is the advertised mDNS service type.
const serviceType = "_bacnet._tcp"

// domain is the mDNS domain. Always "local." for link-local discovery.
const domain = "local."

// Advertiser registers the API endpoint as an mDNS service.
type Advertiser struct {
	logger *logging.Logger

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser. Call Start to begin advertising.
func NewAdvertiser(logger *logging.Logger) *Advertiser {
	return &Advertiser{logger: logger}
}

// Start registers the service on all interfaces. The instance name comes
// from config; port is the HTTP API listen port. Calling Start twice
// replaces the previous registration.
func (a *Advertiser) Start(cfg config.ZeroconfConfig, port int, version string) error {
	if !cfg.Enabled {
		return nil
	}

	instance := cfg.InstanceName
	if instance == "" {
		instance = "gray-logic-bacnet"
	}

	txt := []string{
		"version=" + version,
		"api=/api/v1",
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(instance, serviceType, domain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("registering mDNS service: %w", err)
	}
	a.server = server

	a.logger.Info("mDNS advertisement started",
		"instance", instance,
		"service", serviceType,
		"port", port,
	)
	return nil
}

// Shutdown withdraws the advertisement. Safe to call when not started.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.logger.Info("mDNS advertisement stopped")
	}
}
