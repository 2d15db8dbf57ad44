package bacnet

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/mqtt"
)

// Shared fixture identifiers.
var (
	testDeviceID = bacnet.ObjectID{Type: bacnet.ObjectDevice, Instance: 100}
	testAnalog   = bacnet.ObjectID{Type: bacnet.ObjectAnalogInput, Instance: 1}
	testBinary   = bacnet.ObjectID{Type: bacnet.ObjectBinaryInput, Instance: 2}
	testAddr     = bacnet.Address("192.168.1.50:47808")
)

type readManyCall struct {
	addr  bacnet.Address
	specs []bacnet.ReadAccessSpec
}

type readOneCall struct {
	addr   bacnet.Address
	object bacnet.ObjectID
	prop   bacnet.PropertyRef
}

type subscribeCall struct {
	addr bacnet.Address
	req  bacnet.SubscribeRequest
}

type writeCall struct {
	addr bacnet.Address
	req  bacnet.WriteRequest
}

// fakeTransport records every outbound request and answers via scriptable
// functions. The call index passed to each function counts prior calls of
// the same kind, so tests can script per-attempt behaviour.
type fakeTransport struct {
	mu sync.Mutex

	readManyFn  func(call int, addr bacnet.Address, specs []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error)
	readOneFn   func(call int, addr bacnet.Address, object bacnet.ObjectID, prop bacnet.PropertyRef) (bacnet.PropertyValue, error)
	subscribeFn func(call int, addr bacnet.Address, req bacnet.SubscribeRequest) error
	writeFn     func(call int, addr bacnet.Address, req bacnet.WriteRequest) error

	readManyCalls  []readManyCall
	readOneCalls   []readOneCall
	subscribeCalls []subscribeCall
	writeCalls     []writeCall

	handler bacnet.InboundHandler
}

func (f *fakeTransport) Announce(context.Context) error { return nil }
func (f *fakeTransport) Solicit(context.Context) error  { return nil }
func (f *fakeTransport) Close() error                   { return nil }

func (f *fakeTransport) SetHandler(h bacnet.InboundHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeTransport) ReadMany(_ context.Context, addr bacnet.Address, specs []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
	f.mu.Lock()
	call := len(f.readManyCalls)
	f.readManyCalls = append(f.readManyCalls, readManyCall{addr: addr, specs: specs})
	fn := f.readManyFn
	f.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(call, addr, specs)
}

func (f *fakeTransport) ReadOne(_ context.Context, addr bacnet.Address, object bacnet.ObjectID, prop bacnet.PropertyRef) (bacnet.PropertyValue, error) {
	f.mu.Lock()
	call := len(f.readOneCalls)
	f.readOneCalls = append(f.readOneCalls, readOneCall{addr: addr, object: object, prop: prop})
	fn := f.readOneFn
	f.mu.Unlock()

	if fn == nil {
		return bacnet.PropertyValue{}, nil
	}
	return fn(call, addr, object, prop)
}

func (f *fakeTransport) Write(_ context.Context, addr bacnet.Address, req bacnet.WriteRequest) error {
	f.mu.Lock()
	call := len(f.writeCalls)
	f.writeCalls = append(f.writeCalls, writeCall{addr: addr, req: req})
	fn := f.writeFn
	f.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(call, addr, req)
}

func (f *fakeTransport) Subscribe(_ context.Context, addr bacnet.Address, req bacnet.SubscribeRequest) error {
	f.mu.Lock()
	call := len(f.subscribeCalls)
	f.subscribeCalls = append(f.subscribeCalls, subscribeCall{addr: addr, req: req})
	fn := f.subscribeFn
	f.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(call, addr, req)
}

func (f *fakeTransport) ReadManyCalls() []readManyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]readManyCall, len(f.readManyCalls))
	copy(out, f.readManyCalls)
	return out
}

func (f *fakeTransport) ReadOneCalls() []readOneCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]readOneCall, len(f.readOneCalls))
	copy(out, f.readOneCalls)
	return out
}

func (f *fakeTransport) SubscribeCalls() []subscribeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]subscribeCall, len(f.subscribeCalls))
	copy(out, f.subscribeCalls)
	return out
}

func (f *fakeTransport) WriteCalls() []writeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]writeCall, len(f.writeCalls))
	copy(out, f.writeCalls)
	return out
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakePublisher struct {
	mu        sync.Mutex
	messages  []publishedMessage
	connected bool
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (p *fakePublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

func (p *fakePublisher) MessagesOn(topic string) []publishedMessage {
	var out []publishedMessage
	for _, msg := range p.Messages() {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func newTestBridge(t *testing.T, transport *fakeTransport, cfg Config) *Bridge {
	t.Helper()

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 2 * time.Second
	}

	b, err := NewBridge(BridgeOptions{
		Config:    cfg,
		Transport: transport,
		Registry:  device.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	t.Cleanup(b.Stop)
	return b
}

// wait blocks until every in-flight request, including chained retries and
// follow-ups, has completed.
func wait(b *Bridge) {
	b.inflight.Wait()
}

// deviceAnnouncement returns a plain I-Am for the fixture device.
func deviceAnnouncement() bacnet.IAm {
	return bacnet.IAm{
		Device:  testDeviceID,
		Address: testAddr,
		MaxAPDU: 1476,
		Vendor:  260,
	}
}

// deviceReadResult builds a successful device property read, optionally
// carrying an object list.
func deviceReadResult(objectList ...bacnet.ObjectID) []bacnet.ObjectResult {
	values := []bacnet.PropertyValue{
		{ID: bacnet.PropObjectName, ArrayIndex: bacnet.ArrayAll, Value: "controller"},
		{ID: bacnet.PropVendorName, ArrayIndex: bacnet.ArrayAll, Value: "Acme Controls"},
		{ID: bacnet.PropVendorIdentifier, ArrayIndex: bacnet.ArrayAll, Value: uint32(260)},
	}
	if len(objectList) > 0 {
		items := make([]any, 0, len(objectList))
		for _, id := range objectList {
			items = append(items, id)
		}
		values = append(values, bacnet.PropertyValue{
			ID:         bacnet.PropObjectList,
			ArrayIndex: bacnet.ArrayAll,
			Value:      items,
		})
	}
	return []bacnet.ObjectResult{{Object: testDeviceID, Values: values}}
}

func TestNewBridgeRequiresTransportAndRegistry(t *testing.T) {
	if _, err := NewBridge(BridgeOptions{Registry: device.NewRegistry()}); err == nil {
		t.Error("expected error without transport")
	}
	if _, err := NewBridge(BridgeOptions{Transport: &fakeTransport{}}); err == nil {
		t.Error("expected error without registry")
	}
}

// Optional deps are wired from concrete pointers that may be nil. A nil
// pointer arriving through the interface must count as an absent
// dependency, not a non-nil interface that panics on first use.
func TestTypedNilOptionalDepsAreIgnored(t *testing.T) {
	var pub *fakePublisher

	transport := &fakeTransport{}
	transport.readManyFn = func(int, bacnet.Address, []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		return deviceReadResult(), nil
	}

	b, err := NewBridge(BridgeOptions{
		Config:    Config{RequestTimeout: 2 * time.Second},
		Transport: transport,
		Registry:  device.NewRegistry(),
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}

	if b.publisher != nil {
		t.Error("typed-nil publisher should normalize to nil")
	}

	// Both the merge path and the shutdown health report publish; neither
	// may dereference the nil pointer.
	b.HandleIAm(deviceAnnouncement())
	wait(b)
	b.Stop()
}

func TestHealthReporterToleratesTypedNilPublisher(t *testing.T) {
	var pub *fakePublisher
	h := NewHealthReporter(HealthReporterConfig{Publisher: pub})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow: %v", err)
	}
	h.Stop()
}

func TestStopRejectsNewRequests(t *testing.T) {
	transport := &fakeTransport{}
	b := newTestBridge(t, transport, Config{})
	b.Stop()

	if err := b.ReadMany([]bacnet.ObjectID{testAnalog}, []bacnet.PropertyID{bacnet.PropPresentValue}, testAddr); err != ErrBridgeStopped {
		t.Errorf("ReadMany after stop = %v, want ErrBridgeStopped", err)
	}
	if err := b.ReadOne(testAnalog, bacnet.PropPresentValue, testAddr); err != ErrBridgeStopped {
		t.Errorf("ReadOne after stop = %v, want ErrBridgeStopped", err)
	}
	if err := b.Write(testAnalog, bacnet.PropPresentValue, 1.0, 8, testAddr); err != ErrBridgeStopped {
		t.Errorf("Write after stop = %v, want ErrBridgeStopped", err)
	}
	if err := b.Subscribe(testAnalog, true, testAddr, 0); err != ErrBridgeStopped {
		t.Errorf("Subscribe after stop = %v, want ErrBridgeStopped", err)
	}
}

func TestMergePublishesRetainedState(t *testing.T) {
	transport := &fakeTransport{}
	transport.readManyFn = func(call int, _ bacnet.Address, _ []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		return deviceReadResult(), nil
	}

	pub := &fakePublisher{connected: true}
	b, err := NewBridge(BridgeOptions{
		Config:    Config{RequestTimeout: 2 * time.Second},
		Transport: transport,
		Registry:  device.NewRegistry(),
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	defer b.Stop()

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	topic := mqtt.Topics{}.BridgeState("bacnet", testDeviceID.String()+"/"+testDeviceID.String())
	states := pub.MessagesOn(topic)
	if len(states) != 1 {
		t.Fatalf("state messages on %q = %d, want 1", topic, len(states))
	}
	if !states[0].retained || states[0].qos != 1 {
		t.Errorf("state published qos=%d retained=%v, want qos=1 retained", states[0].qos, states[0].retained)
	}

	var msg struct {
		DeviceID   string         `json:"device_id"`
		ObjectID   string         `json:"object_id"`
		Properties map[string]any `json:"properties"`
		Source     string         `json:"source"`
	}
	if err := json.Unmarshal(states[0].payload, &msg); err != nil {
		t.Fatalf("unmarshal state payload: %v", err)
	}
	if msg.DeviceID != testDeviceID.String() || msg.Source != device.ValueHistorySourceRead {
		t.Errorf("state message = %+v", msg)
	}
	if msg.Properties["objectName"] != "controller" {
		t.Errorf("objectName = %v, want controller", msg.Properties["objectName"])
	}

	discovery := pub.MessagesOn(mqtt.Topics{}.BridgeDiscovery("bacnet"))
	if len(discovery) != 1 {
		t.Errorf("discovery messages = %d, want 1", len(discovery))
	}
}

func TestGetMetricsCountsActiveSubscriptions(t *testing.T) {
	transport := &fakeTransport{}
	transport.readManyFn = func(call int, _ bacnet.Address, _ []bacnet.ReadAccessSpec) ([]bacnet.ObjectResult, error) {
		if call == 0 {
			return deviceReadResult(testAnalog), nil
		}
		return []bacnet.ObjectResult{{
			Object: testAnalog,
			Values: []bacnet.PropertyValue{
				{ID: bacnet.PropPresentValue, ArrayIndex: bacnet.ArrayAll, Value: float32(20.5)},
			},
		}}, nil
	}
	b := newTestBridge(t, transport, Config{})

	b.HandleIAm(deviceAnnouncement())
	wait(b)

	m := b.GetMetrics()
	if m.DevicesDiscovered != 1 {
		t.Errorf("DevicesDiscovered = %d, want 1", m.DevicesDiscovered)
	}
	if m.ObjectsTracked != 2 {
		t.Errorf("ObjectsTracked = %d, want 2 (device + analog)", m.ObjectsTracked)
	}
	if m.ActiveSubscriptions != 1 {
		t.Errorf("ActiveSubscriptions = %d, want 1", m.ActiveSubscriptions)
	}
	if m.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", m.Status)
	}
}
