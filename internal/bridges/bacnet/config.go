package bacnet

import (
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
)

// Default intervals and limits.
const (
	defaultWhoIsInterval  = 5 * time.Minute
	defaultPollInterval   = 30 * time.Second
	defaultRequestTimeout = 6 * time.Second
	defaultHealthInterval = 30 * time.Second

	// defaultSubscriptionLifetime of 0 requests an indefinite COV
	// subscription.
	defaultSubscriptionLifetime = 0

	// maxObjectsPerRead bounds how many objects one read-many request
	// carries. Large batches trip APDU limits on small controllers.
	maxObjectsPerRead = 16
)

// Config holds bridge behaviour settings. Zero values take defaults via
// withDefaults; the YAML-level configuration maps onto this in main.
type Config struct {
	// WhoIsInterval is how often peers are re-solicited. Catches devices
	// that boot after us.
	WhoIsInterval time.Duration

	// PollInterval is how often present-value-class properties of all
	// known objects are re-read.
	PollInterval time.Duration

	// RequestTimeout bounds each outbound request.
	RequestTimeout time.Duration

	// HealthInterval is how often bridge health is published.
	HealthInterval time.Duration

	// DeviceProperties is the property set read from device objects.
	DeviceProperties []bacnet.PropertyID

	// OnceProperties is the property set read once per contained object.
	OnceProperties []bacnet.PropertyID

	// PollProperties is the property set refreshed on PollInterval.
	PollProperties []bacnet.PropertyID

	// SubscribableTypes is the object-type allow-list.
	SubscribableTypes []bacnet.ObjectType

	// SubscriptionLifetime is the requested COV lifetime in seconds.
	// 0 requests an indefinite subscription.
	SubscriptionLifetime uint32

	// COVDisposition answers confirmed notifications process-wide.
	// Defaults to acknowledging everything.
	COVDisposition bacnet.Disposition
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.WhoIsInterval <= 0 {
		c.WhoIsInterval = defaultWhoIsInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = defaultHealthInterval
	}
	if len(c.DeviceProperties) == 0 {
		c.DeviceProperties = defaultDeviceProperties
	}
	if len(c.OnceProperties) == 0 {
		c.OnceProperties = defaultOnceProperties
	}
	if len(c.PollProperties) == 0 {
		c.PollProperties = defaultPollProperties
	}
	if len(c.SubscribableTypes) == 0 {
		c.SubscribableTypes = defaultSubscribableTypes
	}
	return c
}

// allowsType reports whether the object type passes the allow-list.
func (c Config) allowsType(t bacnet.ObjectType) bool {
	for _, allowed := range c.SubscribableTypes {
		if t == allowed {
			return true
		}
	}
	return false
}
