package bacnet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
)

// readStage tracks how far a read batch has degraded. Retries are bounded:
// a reduced-list failure is terminal.
type readStage uint8

const (
	// stageInitial is the first attempt with the caller's property set.
	stageInitial readStage = iota

	// stageDeviceProps is the single-device fallback using the full
	// device property list.
	stageDeviceProps

	// stageReduced is the last-resort fallback using the reduced,
	// widely-supported property list.
	stageReduced
)

// readBatch is the pending-request context for one read-many: enough of
// the original parameters to reconstruct a reduced-scope retry when the
// completion reports an error.
type readBatch struct {
	id     string
	addr   bacnet.Address
	specs  []bacnet.ReadAccessSpec
	stage  readStage
	source string
}

// ReadMany requests the given properties from each object at addr. The
// request is submitted fire-and-forget; results merge into the registry
// as the completion arrives. Construction failures are returned
// immediately.
func (b *Bridge) ReadMany(objects []bacnet.ObjectID, props []bacnet.PropertyID, addr bacnet.Address) error {
	if b.stopped() {
		return ErrBridgeStopped
	}
	if len(objects) == 0 {
		return fmt.Errorf("%w: no objects", ErrRequestConstruction)
	}
	if len(props) == 0 {
		return fmt.Errorf("%w: no properties", ErrRequestConstruction)
	}
	if addr == "" {
		return fmt.Errorf("%w: no address", ErrRequestConstruction)
	}

	specs := make([]bacnet.ReadAccessSpec, 0, len(objects))
	for _, obj := range objects {
		specs = append(specs, bacnet.ReadAccessSpec{
			Object:     obj,
			Properties: bacnet.Refs(props...),
		})
	}

	b.submitReadMany(&readBatch{
		id:     uuid.NewString(),
		addr:   addr,
		specs:  specs,
		stage:  stageInitial,
		source: device.ValueHistorySourceRead,
	})
	return nil
}

// submitReadMany runs the batch on its own goroutine and routes the
// completion through the serialized handler.
func (b *Bridge) submitReadMany(batch *readBatch) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()

		ctx, cancel := context.WithTimeout(b.ctx, b.cfg.RequestTimeout)
		defer cancel()

		results, err := b.transport.ReadMany(ctx, batch.addr, batch.specs)
		b.completeReadMany(batch, results, err)
	}()
}

// completeReadMany handles a read-many completion: merge on success,
// degrade and resubmit on failure.
func (b *Bridge) completeReadMany(batch *readBatch, results []bacnet.ObjectResult, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.retryReadMany(batch, err)
		return
	}

	for _, result := range results {
		b.ingestObjectResult(batch.addr, result, batch.source)
	}
}

// retryReadMany applies the two-stage fallback policy.
// Called with b.mu held.
func (b *Bridge) retryReadMany(batch *readBatch, err error) {
	class := bacnet.ClassOf(err)

	if batch.stage == stageReduced {
		b.logger.Error("read batch failed after reduced retry, dropping",
			"request_id", batch.id,
			"address", string(batch.addr),
			"objects", len(batch.specs),
			"class", class.String(),
			"error", err.Error())
		return
	}

	retry := &readBatch{
		id:     uuid.NewString(),
		addr:   batch.addr,
		source: batch.source,
	}

	if batch.stage == stageInitial && len(batch.specs) == 1 && batch.specs[0].Object.IsDevice() {
		// A device refused the requested shape: fall back to the full
		// device property list before giving up on the object set.
		retry.stage = stageDeviceProps
		retry.specs = []bacnet.ReadAccessSpec{{
			Object:     batch.specs[0].Object,
			Properties: bacnet.Refs(b.cfg.DeviceProperties...),
		}}
	} else {
		retry.stage = stageReduced
		retry.specs = make([]bacnet.ReadAccessSpec, 0, len(batch.specs))
		for _, spec := range batch.specs {
			retry.specs = append(retry.specs, bacnet.ReadAccessSpec{
				Object:     spec.Object,
				Properties: bacnet.Refs(reducedProperties...),
			})
		}
	}

	b.logger.Warn("read batch failed, retrying",
		"request_id", batch.id,
		"retry_id", retry.id,
		"class", class.String(),
		"stage", int(retry.stage))
	b.submitReadMany(retry)
}

// ReadOne requests a single property from one object at addr.
func (b *Bridge) ReadOne(object bacnet.ObjectID, prop bacnet.PropertyID, addr bacnet.Address) error {
	if b.stopped() {
		return ErrBridgeStopped
	}
	if addr == "" {
		return fmt.Errorf("%w: no address", ErrRequestConstruction)
	}

	b.submitReadOne(uuid.NewString(), addr, object, bacnet.Ref(prop), false)
	return nil
}

// submitReadOne runs a read-property on its own goroutine. retried marks
// the narrowed fallback attempt so it is not retried again.
func (b *Bridge) submitReadOne(id string, addr bacnet.Address, object bacnet.ObjectID, prop bacnet.PropertyRef, retried bool) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()

		ctx, cancel := context.WithTimeout(b.ctx, b.cfg.RequestTimeout)
		defer cancel()

		value, err := b.transport.ReadOne(ctx, addr, object, prop)
		b.completeReadOne(id, addr, object, prop, retried, value, err)
	}()
}

// completeReadOne mirrors the read-many decode for a single property. On
// error for a device object it retries once, narrowed to objectList.
func (b *Bridge) completeReadOne(id string, addr bacnet.Address, object bacnet.ObjectID, prop bacnet.PropertyRef, retried bool, value bacnet.PropertyValue, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		if object.IsDevice() && !retried {
			retryID := uuid.NewString()
			b.logger.Warn("device read failed, narrowing to object list",
				"request_id", id,
				"retry_id", retryID,
				"class", bacnet.ClassOf(err).String())
			b.submitReadOne(retryID, addr, object, bacnet.Ref(bacnet.PropObjectList), true)
			return
		}
		b.logger.Error("read failed",
			"request_id", id,
			"object", object.String(),
			"property", prop.ID.String(),
			"class", bacnet.ClassOf(err).String(),
			"error", err.Error())
		return
	}

	b.ingestObjectResult(addr, bacnet.ObjectResult{
		Object: object,
		Values: []bacnet.PropertyValue{value},
	}, device.ValueHistorySourceRead)
}

// Write submits a property write fire-and-forget. Failures surface in the
// log; the value's effect shows up through COV or the next poll.
func (b *Bridge) Write(object bacnet.ObjectID, prop bacnet.PropertyID, value any, priority uint8, addr bacnet.Address) error {
	if b.stopped() {
		return ErrBridgeStopped
	}
	if addr == "" {
		return fmt.Errorf("%w: no address", ErrRequestConstruction)
	}
	if value == nil {
		return fmt.Errorf("%w: no value", ErrRequestConstruction)
	}

	id := uuid.NewString()
	req := bacnet.WriteRequest{
		Object:   object,
		Property: bacnet.Ref(prop),
		Value:    value,
		Priority: priority,
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()

		ctx, cancel := context.WithTimeout(b.ctx, b.cfg.RequestTimeout)
		defer cancel()

		if err := b.transport.Write(ctx, addr, req); err != nil {
			b.logger.Error("write failed",
				"request_id", id,
				"object", object.String(),
				"property", prop.String(),
				"class", bacnet.ClassOf(err).String(),
				"error", err.Error())
			return
		}
		b.logger.Info("write acknowledged",
			"request_id", id,
			"object", object.String(),
			"property", prop.String())
	}()
	return nil
}

// Subscribe establishes a COV subscription for an object, allocating a
// subscriber process id keyed on (object, device-at-addr). lifetime 1 is
// the protocol's idiom for unsubscribing.
func (b *Bridge) Subscribe(object bacnet.ObjectID, confirmed bool, addr bacnet.Address, lifetime uint32) error {
	if b.stopped() {
		return ErrBridgeStopped
	}

	deviceID, err := b.registry.LookupDeviceID(addr)
	if err != nil {
		return fmt.Errorf("%w: no device at %s", ErrUnknownDevice, addr)
	}

	key := subscriptionKey{Object: object, Device: deviceID}
	processID := b.ids.Assign(key)

	req := bacnet.SubscribeRequest{
		Object:    object,
		ProcessID: processID,
		Confirmed: confirmed,
		Lifetime:  lifetime,
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()

		ctx, cancel := context.WithTimeout(b.ctx, b.cfg.RequestTimeout)
		defer cancel()

		err := b.transport.Subscribe(ctx, addr, req)
		b.completeSubscribe(key, req, err)
	}()
	return nil
}

// Unsubscribe ends a COV subscription by requesting near-immediate expiry.
func (b *Bridge) Unsubscribe(object bacnet.ObjectID, addr bacnet.Address) error {
	return b.Subscribe(object, true, addr, 1)
}

// completeSubscribe finalizes subscription state. A rejected subscribe
// returns the process id to the pool so the next attempt starts fresh.
func (b *Bridge) completeSubscribe(key subscriptionKey, req bacnet.SubscribeRequest, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.ids.Unassign(key)
		delete(b.subscribed, key)
		b.logger.Warn("subscription failed, id reclaimed",
			"object", key.Object.String(),
			"device", key.Device.String(),
			"class", bacnet.ClassOf(err).String(),
			"error", err.Error())
		return
	}

	if req.Lifetime == 1 {
		// Unsubscribe acknowledged.
		b.ids.Unassign(key)
		delete(b.subscribed, key)
		b.logger.Info("subscription ended",
			"object", key.Object.String(),
			"device", key.Device.String())
		return
	}

	b.subscribed[key] = true
	b.logger.Info("subscription active",
		"object", key.Object.String(),
		"device", key.Device.String(),
		"process_id", req.ProcessID,
		"confirmed", req.Confirmed)
}

// ingestObjectResult decodes and merges one object's returned values,
// then advances discovery for that object.
// Called with b.mu held.
func (b *Bridge) ingestObjectResult(addr bacnet.Address, result bacnet.ObjectResult, source string) {
	deviceID := result.Object
	if !result.Object.IsDevice() {
		var err error
		deviceID, err = b.registry.LookupDeviceID(addr)
		if err != nil {
			b.logger.Warn("dropping result from unknown address", "address", string(addr))
			return
		}
	}

	firstDeviceContact := result.Object.IsDevice() &&
		!b.registry.HasObjectProperties(deviceID, result.Object)

	props := b.decodeValues(result.Object, result.Values)
	if len(props) == 0 {
		return
	}

	if err := b.registry.Merge(deviceID, result.Object, props); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			b.logger.Warn("dropping result for unknown device", "device", deviceID.String())
			return
		}
		b.logger.Error("merge failed", "device", deviceID.String(), "error", err.Error())
		return
	}

	b.afterMerge(deviceID, result.Object, props, source)
	b.advanceDiscovery(addr, deviceID, result.Object, props, firstDeviceContact)
}

// decodeValues decodes each returned value by its declared datatype.
// Undecodable properties are skipped, not fatal.
func (b *Bridge) decodeValues(object bacnet.ObjectID, values []bacnet.PropertyValue) device.Properties {
	props := make(device.Properties, len(values))
	for _, pv := range values {
		dt, ok := bacnet.LookupDataType(object.Type, pv.ID)
		if !ok {
			b.logger.Debug("skipping property with unknown datatype",
				"object", object.String(),
				"property", pv.ID.String())
			continue
		}

		decoded, err := bacnet.DecodeValue(dt, pv.ArrayIndex, pv.Value)
		if err != nil {
			b.logger.Debug("skipping undecodable property",
				"object", object.String(),
				"property", pv.ID.String(),
				"error", err.Error())
			continue
		}
		props[pv.ID] = decoded
	}
	return props
}
