package bacnet

import (
	"fmt"
	"math"
)

// Kind is the application datatype of a decoded property value.
type Kind uint8

// Application datatypes relevant to decode path selection.
const (
	KindInvalid Kind = iota
	KindNull
	KindBoolean
	KindUnsigned
	KindSigned
	KindReal
	KindCharacterString
	KindBitString
	KindEnumerated
	KindObjectID
)

// DataType describes how a property value decodes: a scalar kind, or an
// array whose elements decode as Kind. For arrays read with an explicit
// index, index 0 always decodes as an unsigned element count regardless
// of Kind.
type DataType struct {
	Kind  Kind
	Array bool
}

// propertyDataTypes holds datatypes that do not depend on the object type.
var propertyDataTypes = map[PropertyID]DataType{
	PropActiveText:         {Kind: KindCharacterString},
	PropCOVIncrement:       {Kind: KindReal},
	PropDescription:        {Kind: KindCharacterString},
	PropEventState:         {Kind: KindEnumerated},
	PropInactiveText:       {Kind: KindCharacterString},
	PropModelName:          {Kind: KindCharacterString},
	PropNumberOfStates:     {Kind: KindUnsigned},
	PropObjectIdentifier:   {Kind: KindObjectID},
	PropObjectList:         {Kind: KindObjectID, Array: true},
	PropObjectName:         {Kind: KindCharacterString},
	PropObjectType:         {Kind: KindEnumerated},
	PropOutOfService:       {Kind: KindBoolean},
	PropPriorityArray:      {Kind: KindReal, Array: true},
	PropReliability:        {Kind: KindEnumerated},
	PropStateText:          {Kind: KindCharacterString, Array: true},
	PropStatusFlags:        {Kind: KindBitString},
	PropSystemStatus:       {Kind: KindEnumerated},
	PropUnits:              {Kind: KindEnumerated},
	PropVendorIdentifier:   {Kind: KindUnsigned},
	PropVendorName:         {Kind: KindCharacterString},
	PropApplicationVersion: {Kind: KindCharacterString},
	PropFirmwareRevision:   {Kind: KindCharacterString},
}

// LookupDataType returns the application datatype for a property of the
// given object type. presentValue is the only property whose datatype
// depends on the object type; everything else is property-determined.
func LookupDataType(objType ObjectType, prop PropertyID) (DataType, bool) {
	if prop == PropPresentValue {
		switch objType {
		case ObjectAnalogInput, ObjectAnalogOutput, ObjectAnalogValue,
			ObjectLargeAnalogValue, ObjectLightingOutput, ObjectLoop, ObjectAveraging:
			return DataType{Kind: KindReal}, true
		case ObjectBinaryInput, ObjectBinaryOutput, ObjectBinaryValue:
			return DataType{Kind: KindEnumerated}, true
		case ObjectMultiStateInput, ObjectMultiStateOutput, ObjectMultiStateValue,
			ObjectAccumulator, ObjectPositiveIntValue:
			return DataType{Kind: KindUnsigned}, true
		case ObjectIntegerValue:
			return DataType{Kind: KindSigned}, true
		default:
			return DataType{}, false
		}
	}

	dt, ok := propertyDataTypes[prop]
	return dt, ok
}

// DecodeValue converts a raw property value delivered by the protocol
// library into its canonical Go representation for the given datatype.
//
// Array handling follows the BACnet array read convention:
//   - arrayIndex == ArrayAll: the raw value is the whole array; each
//     element is decoded with the element kind.
//   - arrayIndex == 0: the value is the array's element count, decoded
//     as an unsigned integer whatever the element kind is.
//   - any other index: the value is a single element, decoded with the
//     element kind.
//
// Returns ErrUnknownDataType (wrapped) when the raw value cannot be
// represented in the requested kind.
func DecodeValue(dt DataType, arrayIndex uint32, raw any) (any, error) {
	if !dt.Array || arrayIndex == ArrayAll {
		if dt.Array {
			return decodeArray(dt.Kind, raw)
		}
		return decodeScalar(dt.Kind, raw)
	}

	if arrayIndex == 0 {
		count, err := toUnsigned(raw)
		if err != nil {
			return nil, fmt.Errorf("array count: %w", err)
		}
		return count, nil
	}

	return decodeScalar(dt.Kind, raw)
}

// decodeArray decodes a whole-array value element by element.
func decodeArray(elem Kind, raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		// A single element is accepted for arrays the peer collapses.
		v, err := decodeScalar(elem, raw)
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		v, err := decodeScalar(elem, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeScalar coerces a raw value into the canonical representation of a
// scalar kind: bool, uint32, int32, float64, string, StatusFlags, ObjectID.
func decodeScalar(kind Kind, raw any) (any, error) {
	switch kind {
	case KindNull:
		return nil, nil

	case KindBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		default:
			n, err := toUnsigned(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: boolean from %T", ErrUnknownDataType, raw)
			}
			return n != 0, nil
		}

	case KindUnsigned, KindEnumerated:
		return toUnsigned(raw)

	case KindSigned:
		switch v := raw.(type) {
		case int:
			return toSigned32(int64(v))
		case int8:
			return int32(v), nil
		case int16:
			return int32(v), nil
		case int32:
			return v, nil
		case int64:
			return toSigned32(v)
		default:
			return nil, fmt.Errorf("%w: signed from %T", ErrUnknownDataType, raw)
		}

	case KindReal:
		switch v := raw.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case uint32:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("%w: real from %T", ErrUnknownDataType, raw)
		}

	case KindCharacterString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: string from %T", ErrUnknownDataType, raw)

	case KindBitString:
		switch v := raw.(type) {
		case StatusFlags:
			return v, nil
		case []bool:
			return statusFlagsFromBits(v), nil
		default:
			return nil, fmt.Errorf("%w: bit string from %T", ErrUnknownDataType, raw)
		}

	case KindObjectID:
		if id, ok := raw.(ObjectID); ok {
			return id, nil
		}
		return nil, fmt.Errorf("%w: object id from %T", ErrUnknownDataType, raw)

	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownDataType, kind)
	}
}

// statusFlagsFromBits maps the standard four-bit status-flags order.
func statusFlagsFromBits(bits []bool) StatusFlags {
	var f StatusFlags
	if len(bits) > 0 {
		f.InAlarm = bits[0]
	}
	if len(bits) > 1 {
		f.Fault = bits[1]
	}
	if len(bits) > 2 {
		f.Overridden = bits[2]
	}
	if len(bits) > 3 {
		f.OutOfService = bits[3]
	}
	return f
}

// toSigned32 narrows a signed raw value, rejecting anything outside the
// int32 range rather than truncating it.
func toSigned32(v int64) (any, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, fmt.Errorf("%w: signed out of range", ErrUnknownDataType)
	}
	return int32(v), nil
}

// toUnsigned coerces integer-ish raw values into uint32.
func toUnsigned(raw any) (uint32, error) {
	switch v := raw.(type) {
	case uint:
		return uint32(v), nil
	case uint8:
		return uint32(v), nil
	case uint16:
		return uint32(v), nil
	case uint32:
		return v, nil
	case uint64:
		if v > math.MaxUint32 {
			return 0, fmt.Errorf("%w: unsigned overflow", ErrUnknownDataType)
		}
		return uint32(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative unsigned", ErrUnknownDataType)
		}
		return uint32(v), nil
	case int32:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative unsigned", ErrUnknownDataType)
		}
		return uint32(v), nil
	case int64:
		if v < 0 || v > math.MaxUint32 {
			return 0, fmt.Errorf("%w: unsigned out of range", ErrUnknownDataType)
		}
		return uint32(v), nil
	default:
		return 0, fmt.Errorf("%w: unsigned from %T", ErrUnknownDataType, raw)
	}
}
