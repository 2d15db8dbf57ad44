package bacnet

import "github.com/nerrad567/gray-logic-bacnet/internal/bacnet"

// defaultDeviceProperties is the full property set read from a device
// object after its announcement.
var defaultDeviceProperties = []bacnet.PropertyID{
	bacnet.PropObjectIdentifier,
	bacnet.PropObjectType,
	bacnet.PropObjectName,
	bacnet.PropSystemStatus,
	bacnet.PropVendorName,
	bacnet.PropVendorIdentifier,
	bacnet.PropObjectList,
	bacnet.PropDescription,
	bacnet.PropModelName,
}

// defaultOnceProperties is read once per contained object after the
// device's object list arrives.
var defaultOnceProperties = []bacnet.PropertyID{
	bacnet.PropObjectIdentifier,
	bacnet.PropObjectType,
	bacnet.PropObjectName,
	bacnet.PropDescription,
	bacnet.PropPresentValue,
	bacnet.PropStatusFlags,
	bacnet.PropOutOfService,
	bacnet.PropUnits,
	bacnet.PropEventState,
	bacnet.PropReliability,
	bacnet.PropCOVIncrement,
	bacnet.PropStateText,
}

// defaultPollProperties is refreshed on the polling interval for every
// known object, catching changes on peers whose COV support is absent or
// unreliable.
var defaultPollProperties = []bacnet.PropertyID{
	bacnet.PropPresentValue,
	bacnet.PropStatusFlags,
	bacnet.PropOutOfService,
	bacnet.PropEventState,
	bacnet.PropReliability,
	bacnet.PropCOVIncrement,
}

// reducedProperties is the widely-supported fallback set used when a peer
// rejects a larger read. Kept deliberately minimal; every conformant
// object supports these.
var reducedProperties = []bacnet.PropertyID{
	bacnet.PropObjectIdentifier,
	bacnet.PropObjectName,
	bacnet.PropDescription,
	bacnet.PropPresentValue,
	bacnet.PropStatusFlags,
	bacnet.PropOutOfService,
	bacnet.PropUnits,
	bacnet.PropReliability,
}

// defaultSubscribableTypes is the object-type allow-list for per-object
// reads and COV subscriptions. Input/output/value objects plus the
// metering and lighting types carry the process data; the administrative
// types are skipped.
var defaultSubscribableTypes = []bacnet.ObjectType{
	bacnet.ObjectAccumulator,
	bacnet.ObjectAnalogInput,
	bacnet.ObjectAnalogOutput,
	bacnet.ObjectAnalogValue,
	bacnet.ObjectAveraging,
	bacnet.ObjectBinaryInput,
	bacnet.ObjectBinaryOutput,
	bacnet.ObjectBinaryValue,
	bacnet.ObjectMultiStateInput,
	bacnet.ObjectMultiStateOutput,
	bacnet.ObjectMultiStateValue,
	bacnet.ObjectLargeAnalogValue,
	bacnet.ObjectIntegerValue,
	bacnet.ObjectPositiveIntValue,
	bacnet.ObjectLightingOutput,
}
