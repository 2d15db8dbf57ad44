package device

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
)

// Properties maps property identifiers to their last decoded values.
type Properties map[bacnet.PropertyID]any

// MarshalJSON renders properties keyed by their lowerCamel names, so API
// payloads and history rows read "presentValue" rather than "85".
func (p Properties) MarshalJSON() ([]byte, error) {
	named := make(map[string]any, len(p))
	for id, v := range p {
		named[id.String()] = v
	}
	return json.Marshal(named)
}

// Object is one BACnet object scoped within a device. The property map is
// merged in place as reads and notifications arrive.
type Object struct {
	// ID identifies the object within its device.
	ID bacnet.ObjectID `json:"id"`

	// Properties holds the last known decoded value per property.
	Properties Properties `json:"properties"`

	// UpdatedAt is the time of the most recent merge (UTC).
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns a copy sharing no mutable state with the original.
func (o *Object) DeepCopy() *Object {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Properties = make(Properties, len(o.Properties))
	for k, v := range o.Properties {
		cp.Properties[k] = v
	}
	return &cp
}

// Device is one BACnet network node and its discovered objects.
type Device struct {
	// ID is the device object identifier (type "device" + instance).
	ID bacnet.ObjectID `json:"id"`

	// Address is the transport address the device announced from.
	// Set on first announcement and not refreshed by later ones.
	Address bacnet.Address `json:"address"`

	// Objects maps object identifiers to their state. The device's own
	// object (its identifier) is stored here too, holding the device
	// properties.
	Objects map[bacnet.ObjectID]*Object `json:"objects"`

	// FirstSeen is when the first announcement arrived (UTC).
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is the time of the most recent merge or announcement (UTC).
	LastSeen time.Time `json:"last_seen"`
}

// DeepCopy returns a copy sharing no mutable state with the original.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Objects = make(map[bacnet.ObjectID]*Object, len(d.Objects))
	for id, obj := range d.Objects {
		cp.Objects[id] = obj.DeepCopy()
	}
	return &cp
}

// Name returns the device's objectName property, or an empty string if it
// has not been read yet.
func (d *Device) Name() string {
	obj, ok := d.Objects[d.ID]
	if !ok {
		return ""
	}
	if name, ok := obj.Properties[bacnet.PropObjectName].(string); ok {
		return name
	}
	return ""
}

// ObjectList returns the device's contained object identifiers as read
// from its objectList property, excluding the device object itself.
func (d *Device) ObjectList() []bacnet.ObjectID {
	obj, ok := d.Objects[d.ID]
	if !ok {
		return nil
	}
	items, ok := obj.Properties[bacnet.PropObjectList].([]any)
	if !ok {
		return nil
	}

	out := make([]bacnet.ObjectID, 0, len(items))
	for _, item := range items {
		id, ok := item.(bacnet.ObjectID)
		if !ok || id.IsDevice() {
			continue
		}
		out = append(out, id)
	}
	return out
}
