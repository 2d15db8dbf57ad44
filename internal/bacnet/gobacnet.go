package bacnet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gobacnet "github.com/alexbeltran/gobacnet"
	bactype "github.com/alexbeltran/gobacnet/types"
)

// maxDeviceInstance is the highest valid device instance number.
const maxDeviceInstance = 4194302

// GobacnetTransport implements Transport on top of the gobacnet library.
//
// The library's calls are synchronous request/response, which fits the
// Transport contract directly. Who-Is answers are returned synchronously
// by the library, so Solicit converts each answering device into an I-Am
// delivered through the handler.
//
// The library does not implement SubscribeCOV or an outbound I-Am:
// Subscribe reports a reject (callers reclaim the subscriber id and fall
// back to polling) and Announce reports ErrNotSupported.
type GobacnetTransport struct {
	mu      sync.Mutex
	client  gobacnet.Client
	handler InboundHandler
	closed  bool

	whoisLow  int
	whoisHigh int
}

// NewGobacnetTransport opens the UDP listener and returns a ready
// transport. whoisLow/whoisHigh bound the device instance range solicited
// by Solicit; pass 0 and 0 for the full range.
func NewGobacnetTransport(whoisLow, whoisHigh uint32) (*GobacnetTransport, error) {
	t := &GobacnetTransport{
		whoisLow:  int(whoisLow),
		whoisHigh: int(whoisHigh),
	}
	if t.whoisHigh == 0 {
		t.whoisHigh = maxDeviceInstance
	}

	if err := t.client.NewClient1(); err != nil {
		return nil, fmt.Errorf("opening bacnet client: %w", err)
	}
	return t, nil
}

// SetHandler registers the receiver for inbound traffic.
func (t *GobacnetTransport) SetHandler(h InboundHandler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Announce is not available through gobacnet.
func (t *GobacnetTransport) Announce(_ context.Context) error {
	return fmt.Errorf("announce: %w", ErrNotSupported)
}

// Solicit broadcasts a Who-Is and feeds each answer to the handler as an
// announcement.
func (t *GobacnetTransport) Solicit(ctx context.Context) error {
	if err := t.guard(ctx); err != nil {
		return err
	}

	devices, err := t.client.WhoIs(t.whoisLow, t.whoisHigh)
	if err != nil {
		return classify(err)
	}

	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return nil
	}

	for _, dev := range devices {
		addr := dev.Addr.IPaddr
		if addr == "" {
			continue
		}
		handler.HandleIAm(IAm{
			Device:  fromObjectID(dev.ID),
			Address: Address(addr),
			MaxAPDU: dev.MaxApdu,
			Vendor:  dev.Vendor,
		})
	}
	return nil
}

// ReadOne reads a single property from one object.
func (t *GobacnetTransport) ReadOne(ctx context.Context, addr Address, object ObjectID, prop PropertyRef) (PropertyValue, error) {
	if err := t.guard(ctx); err != nil {
		return PropertyValue{}, err
	}

	rp := bactype.ReadPropertyData{
		Object: bactype.Object{
			ID:         toObjectID(object),
			Properties: []bactype.Property{toProperty(prop, nil)},
		},
	}

	out, err := t.client.ReadProperty(device(addr), rp)
	if err != nil {
		return PropertyValue{}, classify(err)
	}
	if len(out.Object.Properties) == 0 {
		return PropertyValue{}, NewRequestError(ClassError, fmt.Errorf("empty read result for %s", object))
	}

	return fromProperty(out.Object.Properties[0]), nil
}

// ReadMany reads multiple properties across multiple objects in a single
// read-property-multiple request.
func (t *GobacnetTransport) ReadMany(ctx context.Context, addr Address, specs []ReadAccessSpec) ([]ObjectResult, error) {
	if err := t.guard(ctx); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: empty object set", ErrInvalidRequest)
	}

	rp := bactype.MultiplePropertyData{
		Objects: make([]bactype.Object, 0, len(specs)),
	}
	for _, spec := range specs {
		props := make([]bactype.Property, 0, len(spec.Properties))
		for _, p := range spec.Properties {
			props = append(props, toProperty(p, nil))
		}
		rp.Objects = append(rp.Objects, bactype.Object{
			ID:         toObjectID(spec.Object),
			Properties: props,
		})
	}

	out, err := t.client.ReadMultiProperty(device(addr), rp)
	if err != nil {
		return nil, classify(err)
	}

	results := make([]ObjectResult, 0, len(out.Objects))
	for _, obj := range out.Objects {
		res := ObjectResult{Object: fromObjectID(obj.ID)}
		for _, p := range obj.Properties {
			res.Values = append(res.Values, fromProperty(p))
		}
		results = append(results, res)
	}
	return results, nil
}

// Write writes a single property value.
func (t *GobacnetTransport) Write(ctx context.Context, addr Address, req WriteRequest) error {
	if err := t.guard(ctx); err != nil {
		return err
	}

	wp := bactype.ReadPropertyData{
		Object: bactype.Object{
			ID:         toObjectID(req.Object),
			Properties: []bactype.Property{toProperty(req.Property, req.Value)},
		},
	}

	if err := t.client.WriteProperty(device(addr), wp, uint(req.Priority)); err != nil {
		return classify(err)
	}
	return nil
}

// Subscribe is not available through gobacnet; the reject classification
// lets callers reclaim the subscriber id and rely on polling.
func (t *GobacnetTransport) Subscribe(_ context.Context, _ Address, _ SubscribeRequest) error {
	return NewRequestError(ClassReject, ErrNotSupported)
}

// Close releases the UDP listener.
func (t *GobacnetTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.client.Close()
	return nil
}

// guard rejects requests on a closed transport or cancelled context.
func (t *GobacnetTransport) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return NewRequestError(ClassTimeout, err)
	}
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrTransportClosed
	}
	return nil
}

// classify wraps a library error with its protocol classification.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewRequestError(ClassTimeout, err)
	}
	return NewRequestError(ClassError, err)
}

// device builds the library's destination from an opaque address.
func device(addr Address) bactype.Device {
	return bactype.Device{
		Addr: bactype.Address{IPaddr: string(addr)},
	}
}

func toObjectID(id ObjectID) bactype.ObjectID {
	return bactype.ObjectID{
		Type:     bactype.ObjectType(id.Type),
		Instance: bactype.ObjectInstance(id.Instance),
	}
}

func fromObjectID(id bactype.ObjectID) ObjectID {
	return ObjectID{
		Type:     ObjectType(id.Type),
		Instance: uint32(id.Instance),
	}
}

func toProperty(ref PropertyRef, data any) bactype.Property {
	return bactype.Property{
		Type:       uint32(ref.ID),
		ArrayIndex: ref.ArrayIndex,
		Data:       data,
	}
}

// fromProperty converts a returned property, normalizing library types in
// the payload so DecodeValue sees canonical representations.
func fromProperty(p bactype.Property) PropertyValue {
	return PropertyValue{
		ID:         PropertyID(p.Type),
		ArrayIndex: p.ArrayIndex,
		Value:      fromRaw(p.Data),
	}
}

// fromRaw converts library value types into package-level ones. Scalars
// pass through untouched.
func fromRaw(v any) any {
	switch val := v.(type) {
	case bactype.ObjectID:
		return fromObjectID(val)
	case []bactype.ObjectID:
		out := make([]any, len(val))
		for i, id := range val {
			out[i] = fromObjectID(id)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromRaw(item)
		}
		return out
	default:
		return v
	}
}
