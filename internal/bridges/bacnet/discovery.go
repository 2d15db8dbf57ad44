package bacnet

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
)

// HandleIAm records an announced peer and starts its synchronization
// pipeline. A previously-unknown device triggers exactly one read of the
// device property list; re-announcements of known devices are ignored
// (the stored address is not refreshed).
func (b *Bridge) HandleIAm(iam bacnet.IAm) {
	b.mu.Lock()
	defer b.mu.Unlock()

	created, err := b.registry.Upsert(iam.Device, iam.Address)
	if err != nil {
		b.logger.Warn("ignoring malformed announcement",
			"device", iam.Device.String(),
			"error", err.Error())
		return
	}
	if !created {
		return
	}

	b.logger.Info("device announced",
		"device", iam.Device.String(),
		"address", string(iam.Address),
		"vendor", iam.Vendor)
	b.publishDiscovery(iam)

	b.submitReadMany(&readBatch{
		id:   uuid.NewString(),
		addr: iam.Address,
		specs: []bacnet.ReadAccessSpec{{
			Object:     iam.Device,
			Properties: bacnet.Refs(b.cfg.DeviceProperties...),
		}},
		stage:  stageInitial,
		source: device.ValueHistorySourceRead,
	})
}

// advanceDiscovery runs the per-object continuation after a merge:
//
//   - A device object seen for the first time seeds one follow-up
//     read-many over its contained objects (filtered to the allow-list)
//     requesting the once-only property set.
//   - A non-device object of an allowed type that is not yet subscribed
//     gets a confirmed COV subscription.
//
// Called with b.mu held.
func (b *Bridge) advanceDiscovery(addr bacnet.Address, deviceID, objectID bacnet.ObjectID, props device.Properties, firstDeviceContact bool) {
	if objectID.IsDevice() {
		if !firstDeviceContact {
			return
		}
		b.followUpDeviceObjects(addr, deviceID, props)
		return
	}

	b.maybeSubscribe(addr, deviceID, objectID)
}

// followUpDeviceObjects issues the once-only property read over every
// allow-listed object in the device's object list. One batch covers the
// whole list; the transport layer may split it on APDU limits.
// Called with b.mu held.
func (b *Bridge) followUpDeviceObjects(addr bacnet.Address, deviceID bacnet.ObjectID, props device.Properties) {
	items, ok := props[bacnet.PropObjectList].([]any)
	if !ok {
		b.logger.Debug("device has no object list yet", "device", deviceID.String())
		return
	}

	objects := make([]bacnet.ObjectID, 0, len(items))
	for _, item := range items {
		id, ok := item.(bacnet.ObjectID)
		if !ok || id.IsDevice() || !b.cfg.allowsType(id.Type) {
			continue
		}
		objects = append(objects, id)
	}
	if len(objects) == 0 {
		b.logger.Info("device exposes no subscribable objects", "device", deviceID.String())
		return
	}

	specs := make([]bacnet.ReadAccessSpec, 0, len(objects))
	for _, obj := range objects {
		specs = append(specs, bacnet.ReadAccessSpec{
			Object:     obj,
			Properties: bacnet.Refs(b.cfg.OnceProperties...),
		})
	}

	b.logger.Info("reading contained objects",
		"device", deviceID.String(),
		"objects", len(objects))
	b.submitReadMany(&readBatch{
		id:     uuid.NewString(),
		addr:   addr,
		specs:  specs,
		stage:  stageInitial,
		source: device.ValueHistorySourceRead,
	})
}

// maybeSubscribe issues a confirmed COV subscription for an object that
// passes the allow-list and has none yet.
// Called with b.mu held.
func (b *Bridge) maybeSubscribe(addr bacnet.Address, deviceID, objectID bacnet.ObjectID) {
	if !b.cfg.allowsType(objectID.Type) {
		return
	}

	key := subscriptionKey{Object: objectID, Device: deviceID}
	if b.subscribed[key] {
		return
	}
	// Mark eagerly so interleaved completions for the same object do not
	// double-subscribe; a failed subscribe clears the mark.
	b.subscribed[key] = true

	if err := b.Subscribe(objectID, true, addr, b.cfg.SubscriptionLifetime); err != nil {
		delete(b.subscribed, key)
		b.logger.Warn("subscription not submitted",
			"object", objectID.String(),
			"error", err.Error())
	}
}

// discoveryMessage announces a newly seen device on the discovery topic.
type discoveryMessage struct {
	DeviceID  string    `json:"device_id"`
	Address   string    `json:"address"`
	Vendor    uint32    `json:"vendor,omitempty"`
	MaxAPDU   uint32    `json:"max_apdu,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// publishDiscovery emits a discovery event for a new device.
// Called with b.mu held.
func (b *Bridge) publishDiscovery(iam bacnet.IAm) {
	if b.publisher == nil {
		return
	}

	payload, err := json.Marshal(discoveryMessage{
		DeviceID:  iam.Device.String(),
		Address:   string(iam.Address),
		Vendor:    iam.Vendor,
		MaxAPDU:   iam.MaxAPDU,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		b.logger.Error("failed to marshal discovery message", "error", err.Error())
		return
	}

	if err := b.publisher.Publish(b.topics.BridgeDiscovery("bacnet"), payload, 1, false); err != nil {
		b.logger.Error("failed to publish discovery", "error", err.Error())
	}
}
