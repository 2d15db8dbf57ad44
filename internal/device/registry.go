package device

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the in-memory model of discovered BACnet devices.
//
// All mutation is serialized behind a single mutex so property merges,
// retry decisions, and reverse lookups never observe partial state.
// Query methods return deep copies; callers can safely modify them.
type Registry struct {
	mu      sync.RWMutex
	devices map[bacnet.ObjectID]*Device

	// Change signal subscribers. Each channel has capacity one; a merge
	// sets the signal, a receive clears it. Slow observers coalesce
	// rather than block the writer.
	watchers  map[chan struct{}]struct{}
	watcherMu sync.Mutex

	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:  make(map[bacnet.ObjectID]*Device),
		watchers: make(map[chan struct{}]struct{}),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Upsert records a device at the given address. If the device identifier
// is already known this is a no-op: repeated announcements do not refresh
// the stored address. Returns true when a new device was created.
func (r *Registry) Upsert(deviceID bacnet.ObjectID, addr bacnet.Address) (bool, error) {
	if !deviceID.IsDevice() {
		return false, ErrNotADevice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.devices[deviceID]; ok {
		existing.LastSeen = time.Now().UTC()
		return false, nil
	}

	now := time.Now().UTC()
	r.devices[deviceID] = &Device{
		ID:        deviceID,
		Address:   addr,
		Objects:   make(map[bacnet.ObjectID]*Object),
		FirstSeen: now,
		LastSeen:  now,
	}

	r.logger.Info("device registered", "device", deviceID.String(), "address", string(addr))
	return true, nil
}

// Merge folds decoded property values into an object of a known device,
// creating the object on first contact. Existing properties not named in
// props are retained; same-key entries are overwritten. A successful merge
// sets the change signal.
func (r *Registry) Merge(deviceID, objectID bacnet.ObjectID, props Properties) error {
	if len(props) == 0 {
		return nil
	}

	r.mu.Lock()
	dev, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}

	now := time.Now().UTC()
	obj, ok := dev.Objects[objectID]
	if !ok {
		obj = &Object{
			ID:         objectID,
			Properties: make(Properties, len(props)),
		}
		dev.Objects[objectID] = obj
	}
	for k, v := range props {
		obj.Properties[k] = v
	}
	obj.UpdatedAt = now
	dev.LastSeen = now
	r.mu.Unlock()

	r.notifyChange()

	r.logger.Debug("properties merged",
		"device", deviceID.String(),
		"object", objectID.String(),
		"count", len(props))
	return nil
}

// LookupAddress resolves a device identifier to its transport address.
func (r *Registry) LookupAddress(deviceID bacnet.ObjectID) (bacnet.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[deviceID]
	if !ok {
		return "", ErrDeviceNotFound
	}
	return dev.Address, nil
}

// LookupDeviceID resolves a transport address to the device registered
// there. Linear scan; registries are small.
func (r *Registry) LookupDeviceID(addr bacnet.Address) (bacnet.ObjectID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, dev := range r.devices {
		if dev.Address == addr {
			return id, nil
		}
	}
	return bacnet.ObjectID{}, ErrAddressNotFound
}

// GetDevice retrieves a device by identifier.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(deviceID bacnet.ObjectID) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return dev.DeepCopy(), nil
}

// GetObject retrieves one object of a device.
// The returned object is a deep copy; callers can safely modify it.
func (r *Registry) GetObject(deviceID, objectID bacnet.ObjectID) (*Object, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	obj, ok := dev.Objects[objectID]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return obj.DeepCopy(), nil
}

// HasObjectProperties reports whether an object exists on a device with at
// least one property merged. Used by the bridge to decide whether a device
// result is being seen for the first time.
func (r *Registry) HasObjectProperties(deviceID, objectID bacnet.ObjectID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[deviceID]
	if !ok {
		return false
	}
	obj, ok := dev.Objects[objectID]
	return ok && len(obj.Properties) > 0
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices
}

// DeviceCount returns the number of known devices.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Watch registers a change observer. The returned channel carries a signal
// after every successful merge; receiving clears it. Call Unwatch when done.
func (r *Registry) Watch() chan struct{} {
	ch := make(chan struct{}, 1)
	r.watcherMu.Lock()
	r.watchers[ch] = struct{}{}
	r.watcherMu.Unlock()
	return ch
}

// Unwatch removes a change observer registered with Watch.
func (r *Registry) Unwatch(ch chan struct{}) {
	r.watcherMu.Lock()
	delete(r.watchers, ch)
	r.watcherMu.Unlock()
}

// notifyChange sets the change signal for every observer. Non-blocking:
// an already-set signal stays set.
func (r *Registry) notifyChange() {
	r.watcherMu.Lock()
	defer r.watcherMu.Unlock()

	for ch := range r.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int
	TotalObjects int
	ByObjectType map[bacnet.ObjectType]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.devices),
		ByObjectType: make(map[bacnet.ObjectType]int),
	}

	for _, d := range r.devices {
		for id := range d.Objects {
			stats.TotalObjects++
			stats.ByObjectType[id.Type]++
		}
	}
	return stats
}
