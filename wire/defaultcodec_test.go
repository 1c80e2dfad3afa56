package wire

import (
	"testing"

	"github.com/google/uuid"
)

func roundTrip(t *testing.T, codec Codec, value interface{}, typeCode TypeCode) interface{} {
	t.Helper()
	buf, err := codec.WriteObject(nil, value, typeCode)
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	got, err := codec.ReadObject(buf, typeCode)
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	return got
}

func TestDefaultCodecRoundTripsPrimitives(t *testing.T) {
	codec := NewDefaultCodec()

	if got := roundTrip(t, codec, int32(42), TypeInteger); got != int32(42) {
		t.Errorf("integer round trip: got %v", got)
	}
	if got := roundTrip(t, codec, int64(-123456789), TypeLong); got != int64(-123456789) {
		t.Errorf("long round trip: got %v", got)
	}
	if got := roundTrip(t, codec, "hello world", TypeString); got != "hello world" {
		t.Errorf("string round trip: got %v", got)
	}
	if got := roundTrip(t, codec, true, TypeBoolean); got != true {
		t.Errorf("boolean round trip: got %v", got)
	}
	id := uuid.New()
	if got := roundTrip(t, codec, id, TypeUUID); got != id {
		t.Errorf("uuid round trip: got %v, want %v", got, id)
	}
}

func TestDefaultCodecReadObjectRejectsTypeMismatch(t *testing.T) {
	codec := NewDefaultCodec()
	buf, err := codec.WriteObject(nil, int32(1), TypeInteger)
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	if _, err := codec.ReadObject(buf, TypeString); err == nil {
		t.Fatal("expected a type mismatch error")
	}
}

func TestDefaultCodecGetTypeCodeInfersFromGoType(t *testing.T) {
	codec := NewDefaultCodec()
	cases := []struct {
		value interface{}
		want  TypeCode
	}{
		{int32(1), TypeInteger},
		{int64(1), TypeLong},
		{"s", TypeString},
		{true, TypeBoolean},
		{uuid.New(), TypeUUID},
		{struct{ X int32 }{X: 1}, TypeComplexObject},
	}
	for _, c := range cases {
		if got := codec.GetTypeCode(c.value); got != c.want {
			t.Errorf("GetTypeCode(%T) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestDefaultCodecHashCodeIsDeterministic(t *testing.T) {
	codec := NewDefaultCodec()

	h1, err := codec.HashCode("partition-key", TypeString)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	h2, err := codec.HashCode("partition-key", TypeString)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected deterministic hash, got %d and %d", h1, h2)
	}

	other, err := codec.HashCode("different-key", TypeString)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	if h1 == other {
		t.Error("expected different strings to hash differently (not guaranteed, but overwhelmingly likely)")
	}
}

func TestDefaultCodecHashCodeBooleanMatchesJavaConvention(t *testing.T) {
	codec := NewDefaultCodec()

	trueHash, err := codec.HashCode(true, TypeBoolean)
	if err != nil {
		t.Fatalf("HashCode(true): %v", err)
	}
	if trueHash != 1231 {
		t.Errorf("expected 1231 for true, got %d", trueHash)
	}

	falseHash, err := codec.HashCode(false, TypeBoolean)
	if err != nil {
		t.Fatalf("HashCode(false): %v", err)
	}
	if falseHash != 1237 {
		t.Errorf("expected 1237 for false, got %d", falseHash)
	}
}

func TestDefaultCodecHashCodeLongXorsHighAndLowWords(t *testing.T) {
	codec := NewDefaultCodec()

	got, err := codec.HashCode(int64(0), TypeLong)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 for zero long, got %d", got)
	}
}

type samplePoint struct {
	X int32
	Y int32
}

func TestDefaultCodecComplexObjectRoundTrip(t *testing.T) {
	codec := NewDefaultCodec()
	p := samplePoint{X: 3, Y: 4}

	buf, err := codec.WriteObject(nil, p, TypeComplexObject)
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	got, err := codec.ReadObject(buf, TypeComplexObject)
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}

	obj, ok := got.(BinaryObject)
	if !ok {
		t.Fatalf("expected a BinaryObject, got %T", got)
	}
	xField, ok := obj.Field(0)
	if !ok || xField.Value != int32(3) {
		t.Errorf("expected field 0 to be 3, got %v (ok=%v)", xField.Value, ok)
	}
	yField, ok := obj.Field(1)
	if !ok || yField.Value != int32(4) {
		t.Errorf("expected field 1 to be 4, got %v (ok=%v)", yField.Value, ok)
	}
}

func TestDefaultCodecComplexObjectHashIsStableAcrossCalls(t *testing.T) {
	codec := NewDefaultCodec()
	p1 := samplePoint{X: 1, Y: 2}
	p2 := samplePoint{X: 1, Y: 2}

	h1, err := codec.HashCode(p1, TypeComplexObject)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	h2, err := codec.HashCode(p2, TypeComplexObject)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected equal struct values to hash equally across calls, got %d and %d", h1, h2)
	}
}
