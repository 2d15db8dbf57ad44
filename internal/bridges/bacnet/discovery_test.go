package bacnet

import (
	"testing"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
)

// An announcement from an unknown device triggers exactly one read of the
// device property list.
func TestAnnouncementTriggersOneDeviceRead(t *testing.T) {
	transport := &fakeTransport{}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	calls := transport.ReadManyCalls()
	if len(calls) != 1 {
		t.Fatalf("read-many calls = %d, want 1", len(calls))
	}

	call := calls[0]
	if call.addr != testAddr {
		t.Errorf("read addressed to %q, want %q", call.addr, testAddr)
	}
	if len(call.specs) != 1 || call.specs[0].Object != testDeviceID {
		t.Fatalf("device read specs = %+v", call.specs)
	}
	if !samePropertySet(propIDs(call.specs[0].Properties), b.cfg.DeviceProperties) {
		t.Errorf("device read properties = %v", propIDs(call.specs[0].Properties))
	}
}

// Re-announcing a known device is a no-op: no second read, and the stored
// address is kept even when the announcement carries a new one.
func TestReAnnouncementIsIgnored(t *testing.T) {
	transport := &fakeTransport{}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	moved := deviceAnnouncement()
	moved.Address = "192.168.1.99:47808"
	b.HandleIAm(moved)
	wait(b)

	if calls := transport.ReadManyCalls(); len(calls) != 1 {
		t.Errorf("read-many calls = %d, want 1", len(calls))
	}

	addr, err := b.registry.LookupAddress(testDeviceID)
	if err != nil {
		t.Fatalf("LookupAddress: %v", err)
	}
	if addr != testAddr {
		t.Errorf("stored address = %q, want original %q", addr, testAddr)
	}
}

// A device reporting objects O1 and O2 gets exactly one follow-up
// read-many covering both with the once-only property set.
func TestObjectListSeedsOneFollowUpRead(t *testing.T) {
	transport := &fakeTransport{}
	transport.readManyFn = func(call int, _ bacnet.Address, _ []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		if call == 0 {
			return deviceReadResult(testAnalog, testBinary), nil
		}
		return nil, nil
	}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	calls := transport.ReadManyCalls()
	if len(calls) != 2 {
		t.Fatalf("read-many calls = %d, want 2 (device, follow-up)", len(calls))
	}

	followUp := calls[1]
	if len(followUp.specs) != 2 {
		t.Fatalf("follow-up covers %d objects, want 2", len(followUp.specs))
	}
	if followUp.specs[0].Object != testAnalog || followUp.specs[1].Object != testBinary {
		t.Errorf("follow-up objects = %v, %v", followUp.specs[0].Object, followUp.specs[1].Object)
	}
	for _, spec := range followUp.specs {
		if !samePropertySet(propIDs(spec.Properties), b.cfg.OnceProperties) {
			t.Errorf("follow-up properties = %v, want once list", propIDs(spec.Properties))
		}
	}
}

// Objects outside the allow-list, and nested device entries, are excluded
// from the follow-up read.
func TestFollowUpFiltersObjectList(t *testing.T) {
	trendLog := bacnet.ObjectID{Type: bacnet.ObjectTrendLog, Instance: 9}
	otherDevice := bacnet.ObjectID{Type: bacnet.ObjectDevice, Instance: 200}

	transport := &fakeTransport{}
	transport.readManyFn = func(call int, _ bacnet.Address, _ []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		if call == 0 {
			return deviceReadResult(testAnalog, trendLog, otherDevice, testDeviceID), nil
		}
		return nil, nil
	}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	calls := transport.ReadManyCalls()
	if len(calls) != 2 {
		t.Fatalf("read-many calls = %d, want 2", len(calls))
	}
	followUp := calls[1]
	if len(followUp.specs) != 1 || followUp.specs[0].Object != testAnalog {
		t.Errorf("follow-up specs = %+v, want only %v", followUp.specs, testAnalog)
	}
}

// Metering and lighting object types pass the allow-list alongside the
// input/output/value types.
func TestFollowUpIncludesMeteringAndLightingTypes(t *testing.T) {
	accumulator := bacnet.ObjectID{Type: bacnet.ObjectAccumulator, Instance: 3}
	lighting := bacnet.ObjectID{Type: bacnet.ObjectLightingOutput, Instance: 4}
	trendLog := bacnet.ObjectID{Type: bacnet.ObjectTrendLog, Instance: 9}

	transport := &fakeTransport{}
	transport.readManyFn = func(call int, _ bacnet.Address, _ []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		if call == 0 {
			return deviceReadResult(accumulator, trendLog, lighting), nil
		}
		return nil, nil
	}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	calls := transport.ReadManyCalls()
	if len(calls) != 2 {
		t.Fatalf("read-many calls = %d, want 2", len(calls))
	}
	followUp := calls[1]
	if len(followUp.specs) != 2 || followUp.specs[0].Object != accumulator || followUp.specs[1].Object != lighting {
		t.Errorf("follow-up specs = %+v, want accumulator and lighting output", followUp.specs)
	}
}

// Successfully read objects of allowed types get exactly one confirmed COV
// subscription each, even when their properties merge more than once.
func TestObjectsAreSubscribedConfirmedOnce(t *testing.T) {
	transport := &fakeTransport{}
	transport.readManyFn = func(call int, _ bacnet.Address, specs []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		if call == 0 {
			return deviceReadResult(testAnalog, testBinary), nil
		}
		results := make([]bacnet.ObjectResult, 0, len(specs))
		for _, spec := range specs {
			results = append(results, bacnet.ObjectResult{
				Object: spec.Object,
				Values: []bacnet.PropertyValue{
					{ID: bacnet.PropOutOfService, ArrayIndex: bacnet.ArrayAll, Value: false},
				},
			})
		}
		return results, nil
	}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	// A later poll-style read of the same objects must not re-subscribe.
	if err := b.ReadMany([]bacnet.ObjectID{testAnalog, testBinary}, []bacnet.PropertyID{bacnet.PropOutOfService}, testAddr); err != nil {
		t.Fatalf("ReadMany: %v", err)
	}
	wait(b)

	calls := transport.SubscribeCalls()
	if len(calls) != 2 {
		t.Fatalf("subscribe calls = %d, want 2", len(calls))
	}

	seen := make(map[bacnet.ObjectID]bool)
	ids := make(map[uint32]bool)
	for _, call := range calls {
		if !call.req.Confirmed {
			t.Errorf("subscription for %v not confirmed", call.req.Object)
		}
		if call.req.ProcessID < 1 {
			t.Errorf("process id %d < 1", call.req.ProcessID)
		}
		if ids[call.req.ProcessID] {
			t.Errorf("process id %d used twice", call.req.ProcessID)
		}
		ids[call.req.ProcessID] = true
		seen[call.req.Object] = true
	}
	if !seen[testAnalog] || !seen[testBinary] {
		t.Errorf("subscribed objects = %v, want analog and binary", seen)
	}
}

// A device whose object list holds nothing subscribable produces no
// follow-up and no subscriptions.
func TestEmptyObjectListEndsDiscovery(t *testing.T) {
	transport := &fakeTransport{}
	transport.readManyFn = func(call int, _ bacnet.Address, _ []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		return deviceReadResult(testDeviceID), nil
	}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	if calls := transport.ReadManyCalls(); len(calls) != 1 {
		t.Errorf("read-many calls = %d, want 1", len(calls))
	}
	if calls := transport.SubscribeCalls(); len(calls) != 0 {
		t.Errorf("subscribe calls = %d, want 0", len(calls))
	}
}

// A result arriving from an address with no registered device is dropped.
func TestResultFromUnknownAddressIsDropped(t *testing.T) {
	transport := &fakeTransport{}
	transport.readManyFn = func(int, bacnet.Address, []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		return []bacnet.ObjectResult{{
			Object: testAnalog,
			Values: []bacnet.PropertyValue{
				{ID: bacnet.PropPresentValue, ArrayIndex: bacnet.ArrayAll, Value: float32(1.0)},
			},
		}}, nil
	}
	b := newTestBridge(t, transport, Config{})

	if err := b.ReadMany([]bacnet.ObjectID{testAnalog}, []bacnet.PropertyID{bacnet.PropPresentValue}, "10.9.9.9:47808"); err != nil {
		t.Fatalf("ReadMany: %v", err)
	}
	wait(b)

	if n := b.registry.DeviceCount(); n != 0 {
		t.Errorf("device count = %d, want 0", n)
	}
	if calls := transport.SubscribeCalls(); len(calls) != 0 {
		t.Errorf("subscribe calls = %d, want 0", len(calls))
	}
}
