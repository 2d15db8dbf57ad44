package bacnet

import (
	"errors"
	"math"
	"testing"
)

func TestLookupDataType(t *testing.T) {
	tests := []struct {
		name     string
		objType  ObjectType
		prop     PropertyID
		want     DataType
		wantOK   bool
	}{
		{
			name:    "analog present value is real",
			objType: ObjectAnalogInput,
			prop:    PropPresentValue,
			want:    DataType{Kind: KindReal},
			wantOK:  true,
		},
		{
			name:    "binary present value is enumerated",
			objType: ObjectBinaryValue,
			prop:    PropPresentValue,
			want:    DataType{Kind: KindEnumerated},
			wantOK:  true,
		},
		{
			name:    "multi-state present value is unsigned",
			objType: ObjectMultiStateInput,
			prop:    PropPresentValue,
			want:    DataType{Kind: KindUnsigned},
			wantOK:  true,
		},
		{
			name:    "accumulator present value is unsigned",
			objType: ObjectAccumulator,
			prop:    PropPresentValue,
			want:    DataType{Kind: KindUnsigned},
			wantOK:  true,
		},
		{
			name:    "integer value present value is signed",
			objType: ObjectIntegerValue,
			prop:    PropPresentValue,
			want:    DataType{Kind: KindSigned},
			wantOK:  true,
		},
		{
			name:    "large analog value present value is real",
			objType: ObjectLargeAnalogValue,
			prop:    PropPresentValue,
			want:    DataType{Kind: KindReal},
			wantOK:  true,
		},
		{
			name:    "lighting output present value is real",
			objType: ObjectLightingOutput,
			prop:    PropPresentValue,
			want:    DataType{Kind: KindReal},
			wantOK:  true,
		},
		{
			name:    "device present value is unknown",
			objType: ObjectDevice,
			prop:    PropPresentValue,
			wantOK:  false,
		},
		{
			name:    "object list is an object id array",
			objType: ObjectDevice,
			prop:    PropObjectList,
			want:    DataType{Kind: KindObjectID, Array: true},
			wantOK:  true,
		},
		{
			name:    "object name independent of object type",
			objType: ObjectTrendLog,
			prop:    PropObjectName,
			want:    DataType{Kind: KindCharacterString},
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LookupDataType(tt.objType, tt.prop)
			if ok != tt.wantOK {
				t.Fatalf("LookupDataType ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("LookupDataType = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeValueArrayIndexZeroIsCount(t *testing.T) {
	// Index 0 of any array decodes as an unsigned count, whatever the
	// element type is.
	arrayTypes := []DataType{
		{Kind: KindObjectID, Array: true},
		{Kind: KindCharacterString, Array: true},
		{Kind: KindReal, Array: true},
	}

	for _, dt := range arrayTypes {
		got, err := DecodeValue(dt, 0, uint64(12))
		if err != nil {
			t.Fatalf("DecodeValue(index 0) error: %v", err)
		}
		count, ok := got.(uint32)
		if !ok {
			t.Fatalf("DecodeValue(index 0) = %T, want uint32", got)
		}
		if count != 12 {
			t.Errorf("DecodeValue(index 0) = %d, want 12", count)
		}
	}
}

func TestDecodeValueArrayElement(t *testing.T) {
	dt := DataType{Kind: KindCharacterString, Array: true}

	got, err := DecodeValue(dt, 3, "Cooling")
	if err != nil {
		t.Fatalf("DecodeValue error: %v", err)
	}
	if got != "Cooling" {
		t.Errorf("DecodeValue = %v, want Cooling", got)
	}
}

func TestDecodeValueWholeArray(t *testing.T) {
	dt := DataType{Kind: KindObjectID, Array: true}
	raw := []any{
		ObjectID{Type: ObjectAnalogInput, Instance: 1},
		ObjectID{Type: ObjectBinaryInput, Instance: 2},
	}

	got, err := DecodeValue(dt, ArrayAll, raw)
	if err != nil {
		t.Fatalf("DecodeValue error: %v", err)
	}
	items, ok := got.([]any)
	if !ok {
		t.Fatalf("DecodeValue = %T, want []any", got)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0] != (ObjectID{Type: ObjectAnalogInput, Instance: 1}) {
		t.Errorf("items[0] = %v", items[0])
	}
}

func TestDecodeValueScalars(t *testing.T) {
	tests := []struct {
		name string
		dt   DataType
		raw  any
		want any
	}{
		{"real from float32", DataType{Kind: KindReal}, float32(21.5), float64(float32(21.5))},
		{"unsigned from int", DataType{Kind: KindUnsigned}, 7, uint32(7)},
		{"enumerated from uint32", DataType{Kind: KindEnumerated}, uint32(1), uint32(1)},
		{"boolean from bool", DataType{Kind: KindBoolean}, true, true},
		{"boolean from int", DataType{Kind: KindBoolean}, 1, true},
		{"signed from int64", DataType{Kind: KindSigned}, int64(-40), int32(-40)},
		{"string passthrough", DataType{Kind: KindCharacterString}, "Zone Temp", "Zone Temp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.dt, ArrayAll, tt.raw)
			if err != nil {
				t.Fatalf("DecodeValue error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeValue = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestDecodeValueStatusFlags(t *testing.T) {
	got, err := DecodeValue(DataType{Kind: KindBitString}, ArrayAll, []bool{true, false, false, true})
	if err != nil {
		t.Fatalf("DecodeValue error: %v", err)
	}
	flags, ok := got.(StatusFlags)
	if !ok {
		t.Fatalf("DecodeValue = %T, want StatusFlags", got)
	}
	if !flags.InAlarm || flags.Fault || flags.Overridden || !flags.OutOfService {
		t.Errorf("flags = %+v", flags)
	}
}

func TestDecodeValueUnknownType(t *testing.T) {
	_, err := DecodeValue(DataType{Kind: KindReal}, ArrayAll, "not a number")
	if !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("error = %v, want ErrUnknownDataType", err)
	}

	_, err = DecodeValue(DataType{Kind: KindUnsigned}, ArrayAll, -1)
	if !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("negative unsigned error = %v, want ErrUnknownDataType", err)
	}
}

// A signed value outside the int32 range is rejected, not truncated.
func TestDecodeValueSignedOverflow(t *testing.T) {
	for _, raw := range []any{int64(math.MaxInt32) + 1, int64(math.MinInt32) - 1} {
		_, err := DecodeValue(DataType{Kind: KindSigned}, ArrayAll, raw)
		if !errors.Is(err, ErrUnknownDataType) {
			t.Errorf("DecodeValue(%v) error = %v, want ErrUnknownDataType", raw, err)
		}
	}

	got, err := DecodeValue(DataType{Kind: KindSigned}, ArrayAll, int64(math.MinInt32))
	if err != nil {
		t.Fatalf("DecodeValue error: %v", err)
	}
	if got != int32(math.MinInt32) {
		t.Errorf("DecodeValue = %v, want %v", got, int32(math.MinInt32))
	}
}
