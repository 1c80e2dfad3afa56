package wire

// BinaryObject is the "binary object" form spec §4.3 step 2 refers to: an
// object identified by a typeId, exposing its fields by a numeric field id
// so the affinity map's keyConfig (typeId -> affinityFieldId) can pull out
// the one field that determines partition placement without decoding the
// rest of the object.
//
// Plain Go values (ints, strings, structs without an explicit TypeID) never
// need to be wrapped in a BinaryObject by the caller: DefaultCodec treats an
// unwrapped struct as a "complex object" and assigns its exported fields
// sequential field ids in declaration order, which is enough to keep a
// given struct type's hash stable across calls within one process.
type BinaryObject struct {
	TypeID int32
	Fields []BinaryField
}

// BinaryField is one named-by-id field of a BinaryObject.
type BinaryField struct {
	FieldID  int32
	TypeCode TypeCode
	Value    interface{}
}

// Field returns the value and type code of the field with the given id, if
// present.
func (o BinaryObject) Field(fieldID int32) (BinaryField, bool) {
	for _, f := range o.Fields {
		if f.FieldID == fieldID {
			return f, true
		}
	}
	return BinaryField{}, false
}
