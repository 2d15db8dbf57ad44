package bacnet

import (
	"fmt"
	"strconv"
	"strings"
)

// objectTypeNames maps object types to the lowerCamel names used in topics,
// API payloads, and logs.
var objectTypeNames = map[ObjectType]string{
	ObjectAnalogInput:      "analogInput",
	ObjectAnalogOutput:     "analogOutput",
	ObjectAnalogValue:      "analogValue",
	ObjectBinaryInput:      "binaryInput",
	ObjectBinaryOutput:     "binaryOutput",
	ObjectBinaryValue:      "binaryValue",
	ObjectCalendar:         "calendar",
	ObjectCommand:          "command",
	ObjectDevice:           "device",
	ObjectEventEnrollment:  "eventEnrollment",
	ObjectFile:             "file",
	ObjectGroup:            "group",
	ObjectLoop:             "loop",
	ObjectMultiStateInput:  "multiStateInput",
	ObjectMultiStateOutput: "multiStateOutput",
	ObjectNotificationCls:  "notificationClass",
	ObjectProgram:          "program",
	ObjectSchedule:         "schedule",
	ObjectAveraging:        "averaging",
	ObjectMultiStateValue:  "multiStateValue",
	ObjectTrendLog:         "trendLog",
	ObjectAccumulator:      "accumulator",
	ObjectIntegerValue:     "integerValue",
	ObjectLargeAnalogValue: "largeAnalogValue",
	ObjectPositiveIntValue: "positiveIntegerValue",
	ObjectLightingOutput:   "lightingOutput",
}

var objectTypesByName = func() map[string]ObjectType {
	m := make(map[string]ObjectType, len(objectTypeNames))
	for t, n := range objectTypeNames {
		m[n] = t
	}
	return m
}()

// String returns the lowerCamel name of the object type, or the numeric
// value for types without a registered name.
func (t ObjectType) String() string {
	if n, ok := objectTypeNames[t]; ok {
		return n
	}
	return strconv.FormatUint(uint64(t), 10)
}

// ObjectTypeFromName resolves a lowerCamel object type name.
func ObjectTypeFromName(name string) (ObjectType, bool) {
	t, ok := objectTypesByName[name]
	return t, ok
}

// propertyNames maps property identifiers to lowerCamel names.
var propertyNames = map[PropertyID]string{
	PropActiveText:         "activeText",
	PropCOVIncrement:       "covIncrement",
	PropDescription:        "description",
	PropEventState:         "eventState",
	PropInactiveText:       "inactiveText",
	PropModelName:          "modelName",
	PropNumberOfStates:     "numberOfStates",
	PropObjectIdentifier:   "objectIdentifier",
	PropObjectList:         "objectList",
	PropObjectName:         "objectName",
	PropObjectType:         "objectType",
	PropOutOfService:       "outOfService",
	PropPresentValue:       "presentValue",
	PropPriorityArray:      "priorityArray",
	PropReliability:        "reliability",
	PropStateText:          "stateText",
	PropStatusFlags:        "statusFlags",
	PropSystemStatus:       "systemStatus",
	PropUnits:              "units",
	PropVendorIdentifier:   "vendorIdentifier",
	PropVendorName:         "vendorName",
	PropApplicationVersion: "applicationSoftwareVersion",
	PropFirmwareRevision:   "firmwareRevision",
}

var propertiesByName = func() map[string]PropertyID {
	m := make(map[string]PropertyID, len(propertyNames))
	for p, n := range propertyNames {
		m[n] = p
	}
	return m
}()

// String returns the lowerCamel name of the property, or the numeric value
// for properties without a registered name.
func (p PropertyID) String() string {
	if n, ok := propertyNames[p]; ok {
		return n
	}
	return strconv.FormatUint(uint64(p), 10)
}

// PropertyFromName resolves a lowerCamel property name.
func PropertyFromName(name string) (PropertyID, bool) {
	p, ok := propertiesByName[name]
	return p, ok
}

// ParseObjectID parses the "type:instance" form produced by ObjectID.String,
// e.g. "analogInput:3". The type part also accepts a bare numeric value.
func ParseObjectID(s string) (ObjectID, error) {
	sep := strings.IndexByte(s, ':')
	if sep <= 0 || sep == len(s)-1 {
		return ObjectID{}, fmt.Errorf("%w: %q", ErrInvalidObjectID, s)
	}

	typePart, instPart := s[:sep], s[sep+1:]

	objType, ok := ObjectTypeFromName(typePart)
	if !ok {
		n, err := strconv.ParseUint(typePart, 10, 16)
		if err != nil {
			return ObjectID{}, fmt.Errorf("%w: unknown type %q", ErrInvalidObjectID, typePart)
		}
		objType = ObjectType(n)
	}

	instance, err := strconv.ParseUint(instPart, 10, 32)
	if err != nil {
		return ObjectID{}, fmt.Errorf("%w: bad instance %q", ErrInvalidObjectID, instPart)
	}

	return ObjectID{Type: objType, Instance: uint32(instance)}, nil
}
