package wire

import "testing"

func TestBinaryObjectFieldFindsExistingField(t *testing.T) {
	obj := BinaryObject{
		TypeID: 42,
		Fields: []BinaryField{
			{FieldID: 0, TypeCode: TypeString, Value: "a"},
			{FieldID: 1, TypeCode: TypeInteger, Value: int32(7)},
		},
	}

	f, ok := obj.Field(1)
	if !ok {
		t.Fatal("expected field 1 to be found")
	}
	if f.Value != int32(7) {
		t.Errorf("expected value 7, got %v", f.Value)
	}
}

func TestBinaryObjectFieldMissing(t *testing.T) {
	obj := BinaryObject{TypeID: 42}
	if _, ok := obj.Field(99); ok {
		t.Fatal("expected field 99 to be absent")
	}
}
