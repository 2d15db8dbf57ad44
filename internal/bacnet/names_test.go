package bacnet

import (
	"errors"
	"testing"
)

func TestObjectIDString(t *testing.T) {
	tests := []struct {
		id   ObjectID
		want string
	}{
		{ObjectID{Type: ObjectAnalogInput, Instance: 3}, "analogInput:3"},
		{ObjectID{Type: ObjectDevice, Instance: 100}, "device:100"},
		{ObjectID{Type: ObjectType(999), Instance: 1}, "999:1"},
	}

	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseObjectID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ObjectID
		wantErr bool
	}{
		{"named type", "analogInput:3", ObjectID{Type: ObjectAnalogInput, Instance: 3}, false},
		{"device", "device:100", ObjectID{Type: ObjectDevice, Instance: 100}, false},
		{"accumulator", "accumulator:4", ObjectID{Type: ObjectAccumulator, Instance: 4}, false},
		{"positive integer value", "positiveIntegerValue:2", ObjectID{Type: ObjectPositiveIntValue, Instance: 2}, false},
		{"lighting output", "lightingOutput:6", ObjectID{Type: ObjectLightingOutput, Instance: 6}, false},
		{"numeric type", "19:7", ObjectID{Type: ObjectMultiStateValue, Instance: 7}, false},
		{"missing separator", "analogInput3", ObjectID{}, true},
		{"missing instance", "analogInput:", ObjectID{}, true},
		{"unknown type name", "flying:1", ObjectID{}, true},
		{"bad instance", "device:abc", ObjectID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidObjectID) {
					t.Fatalf("error = %v, want ErrInvalidObjectID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseObjectID error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseObjectID = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoundTripParse(t *testing.T) {
	ids := []ObjectID{
		{Type: ObjectBinaryOutput, Instance: 12},
		{Type: ObjectMultiStateInput, Instance: 0},
	}
	for _, id := range ids {
		parsed, err := ParseObjectID(id.String())
		if err != nil {
			t.Fatalf("ParseObjectID(%q) error: %v", id.String(), err)
		}
		if parsed != id {
			t.Errorf("round trip = %v, want %v", parsed, id)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	re := NewRequestError(ClassReject, base)
	if ClassOf(re) != ClassReject {
		t.Errorf("ClassOf = %v, want reject", ClassOf(re))
	}
	if !errors.Is(re, base) {
		t.Error("RequestError should unwrap to its cause")
	}

	// Unclassified errors default to the error class.
	if ClassOf(base) != ClassError {
		t.Errorf("ClassOf(plain) = %v, want error", ClassOf(base))
	}
}
