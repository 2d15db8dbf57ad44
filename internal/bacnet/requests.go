package bacnet

// PropertyRef names a property to read or write, optionally narrowed to a
// single array element. ArrayIndex is ArrayAll for unindexed access.
type PropertyRef struct {
	ID         PropertyID
	ArrayIndex uint32
}

// Ref returns an unindexed reference to a property.
func Ref(id PropertyID) PropertyRef {
	return PropertyRef{ID: id, ArrayIndex: ArrayAll}
}

// Refs returns unindexed references for each property identifier.
func Refs(ids ...PropertyID) []PropertyRef {
	out := make([]PropertyRef, len(ids))
	for i, id := range ids {
		out[i] = Ref(id)
	}
	return out
}

// ReadAccessSpec names one object and the properties to read from it, as
// carried by a read-many request.
type ReadAccessSpec struct {
	Object     ObjectID
	Properties []PropertyRef
}

// PropertyValue is one returned or notified property value. Value holds the
// raw representation from the protocol library; DecodeValue converts it.
type PropertyValue struct {
	ID         PropertyID
	ArrayIndex uint32
	Value      any
}

// ObjectResult groups the returned values for one object of a read request.
type ObjectResult struct {
	Object ObjectID
	Values []PropertyValue
}

// WriteRequest carries a single property write. Priority 0 means no
// priority (the peer's relinquish-default behaviour applies).
type WriteRequest struct {
	Object   ObjectID
	Property PropertyRef
	Value    any
	Priority uint8
}

// SubscribeRequest carries a COV subscription. Lifetime is in seconds;
// 0 requests an indefinite subscription and 1 is the protocol's idiom for
// ending one (near-immediate expiry).
type SubscribeRequest struct {
	Object    ObjectID
	ProcessID uint32
	Confirmed bool
	Lifetime  uint32
}

// IAm is a parsed peer announcement.
type IAm struct {
	Device  ObjectID
	Address Address
	MaxAPDU uint32
	Vendor  uint32
}

// COVNotification is a parsed change-of-value notification.
type COVNotification struct {
	ProcessID     uint32
	Device        ObjectID
	Object        ObjectID
	TimeRemaining uint32
	Confirmed     bool
	Values        []PropertyValue
}

// Disposition selects how a confirmed COV notification is answered.
type Disposition uint8

// Confirmed-notification answer kinds.
const (
	DispositionAck Disposition = iota
	DispositionReject
	DispositionAbort
)

// String returns the lowercase disposition name.
func (d Disposition) String() string {
	switch d {
	case DispositionAck:
		return "ack"
	case DispositionReject:
		return "reject"
	case DispositionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// ParseDisposition resolves a disposition name from configuration.
func ParseDisposition(s string) (Disposition, bool) {
	switch s {
	case "ack", "":
		return DispositionAck, true
	case "reject":
		return DispositionReject, true
	case "abort":
		return DispositionAbort, true
	default:
		return DispositionAck, false
	}
}
