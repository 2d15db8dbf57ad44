package bacnet

import "fmt"

// ObjectType identifies the standard BACnet object type of an object.
type ObjectType uint16

// Standard object types (ASHRAE 135 clause 21).
const (
	ObjectAnalogInput      ObjectType = 0
	ObjectAnalogOutput     ObjectType = 1
	ObjectAnalogValue      ObjectType = 2
	ObjectBinaryInput      ObjectType = 3
	ObjectBinaryOutput     ObjectType = 4
	ObjectBinaryValue      ObjectType = 5
	ObjectCalendar         ObjectType = 6
	ObjectCommand          ObjectType = 7
	ObjectDevice           ObjectType = 8
	ObjectEventEnrollment  ObjectType = 9
	ObjectFile             ObjectType = 10
	ObjectGroup            ObjectType = 11
	ObjectLoop             ObjectType = 12
	ObjectMultiStateInput  ObjectType = 13
	ObjectMultiStateOutput ObjectType = 14
	ObjectNotificationCls  ObjectType = 15
	ObjectProgram          ObjectType = 16
	ObjectSchedule         ObjectType = 17
	ObjectAveraging        ObjectType = 18
	ObjectMultiStateValue  ObjectType = 19
	ObjectTrendLog         ObjectType = 20
	ObjectAccumulator      ObjectType = 23
	ObjectIntegerValue     ObjectType = 45
	ObjectLargeAnalogValue ObjectType = 46
	ObjectPositiveIntValue ObjectType = 48
	ObjectLightingOutput   ObjectType = 54
)

// PropertyID identifies a standard BACnet property.
type PropertyID uint32

// Standard property identifiers (ASHRAE 135 clause 21).
const (
	PropActiveText         PropertyID = 4
	PropCOVIncrement       PropertyID = 22
	PropDescription        PropertyID = 28
	PropEventState         PropertyID = 36
	PropInactiveText       PropertyID = 46
	PropModelName          PropertyID = 70
	PropNumberOfStates     PropertyID = 74
	PropObjectIdentifier   PropertyID = 75
	PropObjectList         PropertyID = 76
	PropObjectName         PropertyID = 77
	PropObjectType         PropertyID = 79
	PropOutOfService       PropertyID = 81
	PropPresentValue       PropertyID = 85
	PropPriorityArray      PropertyID = 87
	PropReliability        PropertyID = 103
	PropStateText          PropertyID = 110
	PropStatusFlags        PropertyID = 111
	PropSystemStatus       PropertyID = 112
	PropUnits              PropertyID = 117
	PropVendorIdentifier   PropertyID = 120
	PropVendorName         PropertyID = 121
	PropApplicationVersion PropertyID = 12
	PropFirmwareRevision   PropertyID = 44
)

// ObjectID identifies an object within a device, or a device itself
// (type ObjectDevice plus the device instance number).
type ObjectID struct {
	Type     ObjectType
	Instance uint32
}

// String renders the identifier in the conventional "type:instance" form,
// e.g. "analogInput:3" or "device:100".
func (id ObjectID) String() string {
	return fmt.Sprintf("%s:%d", id.Type, id.Instance)
}

// IsDevice reports whether the identifier names a device object.
func (id ObjectID) IsDevice() bool {
	return id.Type == ObjectDevice
}

// Address is the transport address of a peer, opaque to everything above
// the Transport. The gobacnet implementation uses "ip:port".
type Address string

// StatusFlags is the decoded status-flags bit string of an object.
type StatusFlags struct {
	InAlarm      bool `json:"inAlarm"`
	Fault        bool `json:"fault"`
	Overridden   bool `json:"overridden"`
	OutOfService bool `json:"outOfService"`
}

// ArrayAll marks a property reference as unindexed (the whole value rather
// than a single array element). Mirrors the protocol library's convention.
const ArrayAll = ^uint32(0)
