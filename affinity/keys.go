package affinity

import (
	"github.com/latticegrid/gridclient/wire"
)

// ResolveAffinityKey implements spec §4.3's affinity-key resolution steps
// 1-3: determine the key's type code, pull the configured affinity field
// out of a binary/complex object if the cache's keyConfig names one, and
// hash the result through the codec. keyType, if non-nil, overrides type
// inference (step 1's "server type code for keyType if supplied").
func ResolveAffinityKey(codec wire.Codec, key interface{}, keyType *wire.TypeCode, keyConfig KeyConfig) (keyHash int32, err error) {
	typeCode := wire.TypeUnknown
	if keyType != nil {
		typeCode = *keyType
	} else {
		typeCode = codec.GetTypeCode(key)
	}

	affinityKey, affinityTypeCode := key, typeCode

	if typeCode == wire.TypeBinaryObject || typeCode == wire.TypeComplexObject {
		obj, ok := asBinaryObject(codec, key, typeCode)
		if ok && len(keyConfig) > 0 {
			if fieldId, hasField := keyConfig[obj.TypeID]; hasField {
				if field, found := obj.Field(fieldId); found {
					affinityKey, affinityTypeCode = field.Value, field.TypeCode
				}
			}
		}
	}

	return codec.HashCode(affinityKey, affinityTypeCode)
}

// asBinaryObject normalizes key into wire.BinaryObject form so its fields
// can be inspected, per spec §9: "keys passed as plain structures are
// first serialized to that form before field extraction... an
// implementation may short-circuit by reading the field directly from the
// in-memory structure." DefaultCodec's WriteObject/ReadObject round trip is
// exactly that short-circuit: encoding and immediately decoding a struct
// produces the same BinaryObject a real wire round trip would.
func asBinaryObject(codec wire.Codec, key interface{}, typeCode wire.TypeCode) (wire.BinaryObject, bool) {
	if obj, ok := key.(wire.BinaryObject); ok {
		return obj, true
	}

	buf, err := codec.WriteObject(nil, key, typeCode)
	if err != nil {
		return wire.BinaryObject{}, false
	}
	decoded, err := codec.ReadObject(buf, typeCode)
	if err != nil {
		return wire.BinaryObject{}, false
	}
	obj, ok := decoded.(wire.BinaryObject)
	return obj, ok
}
