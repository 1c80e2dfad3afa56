package wire

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// NewDefaultCodec creates the codec this module ships as the one concrete
// Codec implementation (spec §1 treats the codec as an external
// collaborator; nothing else in this module's dependency surface supplies
// one, so DefaultCodec fills that role for both production use and tests).
func NewDefaultCodec() Codec {
	return defaultCodec{}
}

type defaultCodec struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see Codec)
// --------------------------------------------------------------------------

func (defaultCodec) GetTypeCode(value interface{}) TypeCode {
	switch value.(type) {
	case int32, int:
		return TypeInteger
	case int64:
		return TypeLong
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case uuid.UUID:
		return TypeUUID
	case []byte:
		return TypeBinaryObject
	case BinaryObject:
		return TypeBinaryObject
	default:
		return TypeComplexObject
	}
}

func (c defaultCodec) WriteObject(buf []byte, value interface{}, typeCode TypeCode) ([]byte, error) {
	if typeCode == TypeUnknown {
		typeCode = c.GetTypeCode(value)
	}
	buf = append(buf, byte(typeCode))

	switch typeCode {
	case TypeInteger:
		v, err := asInt32(value)
		if err != nil {
			return nil, err
		}
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(v))
		return append(buf, tmp[:]...), nil

	case TypeLong:
		v, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("wire: expected int64 for TypeLong, got %T", value)
		}
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v))
		return append(buf, tmp[:]...), nil

	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("wire: expected string for TypeString, got %T", value)
		}
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(s)))
		buf = append(buf, tmp[:]...)
		return append(buf, s...), nil

	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("wire: expected bool for TypeBoolean, got %T", value)
		}
		if b {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil

	case TypeUUID:
		id, ok := value.(uuid.UUID)
		if !ok {
			return nil, fmt.Errorf("wire: expected uuid.UUID for TypeUUID, got %T", value)
		}
		return append(buf, id[:]...), nil

	case TypeBinaryObject:
		return c.writeBinaryObject(buf, value)

	case TypeComplexObject:
		return c.writeBinaryObject(buf, toBinaryObject(value))

	default:
		return nil, fmt.Errorf("wire: unsupported type code %d", typeCode)
	}
}

func (c defaultCodec) ReadObject(buf []byte, typeCode TypeCode) (interface{}, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("wire: empty buffer")
	}
	actual := TypeCode(buf[0])
	if typeCode != TypeUnknown && typeCode != actual {
		return nil, fmt.Errorf("wire: type code mismatch: wire has %d, caller expected %d", actual, typeCode)
	}
	body := buf[1:]

	switch actual {
	case TypeInteger:
		if len(body) < 4 {
			return nil, fmt.Errorf("wire: truncated integer")
		}
		return int32(binary.LittleEndian.Uint32(body)), nil

	case TypeLong:
		if len(body) < 8 {
			return nil, fmt.Errorf("wire: truncated long")
		}
		return int64(binary.LittleEndian.Uint64(body)), nil

	case TypeString:
		if len(body) < 4 {
			return nil, fmt.Errorf("wire: truncated string length")
		}
		n := binary.LittleEndian.Uint32(body[:4])
		if len(body) < 4+int(n) {
			return nil, fmt.Errorf("wire: truncated string body")
		}
		return string(body[4 : 4+n]), nil

	case TypeBoolean:
		if len(body) < 1 {
			return nil, fmt.Errorf("wire: truncated boolean")
		}
		return body[0] != 0, nil

	case TypeUUID:
		if len(body) < 16 {
			return nil, fmt.Errorf("wire: truncated uuid")
		}
		id, err := uuid.FromBytes(body[:16])
		if err != nil {
			return nil, err
		}
		return id, nil

	case TypeBinaryObject, TypeComplexObject:
		obj, _, err := readBinaryObject(body)
		return obj, err

	default:
		return nil, fmt.Errorf("wire: unsupported type code %d", actual)
	}
}

func (c defaultCodec) HashCode(value interface{}, typeCode TypeCode) (int32, error) {
	if typeCode == TypeUnknown {
		typeCode = c.GetTypeCode(value)
	}

	switch typeCode {
	case TypeInteger:
		v, err := asInt32(value)
		if err != nil {
			return 0, err
		}
		return v, nil

	case TypeLong:
		v, ok := value.(int64)
		if !ok {
			return 0, fmt.Errorf("wire: expected int64 for TypeLong, got %T", value)
		}
		return hashLong(v), nil

	case TypeString:
		s, ok := value.(string)
		if !ok {
			return 0, fmt.Errorf("wire: expected string for TypeString, got %T", value)
		}
		return hashString(s), nil

	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return 0, fmt.Errorf("wire: expected bool for TypeBoolean, got %T", value)
		}
		if b {
			return 1231, nil
		}
		return 1237, nil

	case TypeUUID:
		id, ok := value.(uuid.UUID)
		if !ok {
			return 0, fmt.Errorf("wire: expected uuid.UUID for TypeUUID, got %T", value)
		}
		return hashUUID(id), nil

	case TypeBinaryObject:
		if b, ok := value.([]byte); ok {
			return hashBytes(b), nil
		}
		if obj, ok := value.(BinaryObject); ok {
			encoded, err := c.writeBinaryObject(nil, obj)
			if err != nil {
				return 0, err
			}
			return hashBytes(encoded), nil
		}
		return 0, fmt.Errorf("wire: expected []byte or BinaryObject for TypeBinaryObject, got %T", value)

	case TypeComplexObject:
		encoded, err := c.writeBinaryObject(nil, toBinaryObject(value))
		if err != nil {
			return 0, err
		}
		return hashBytes(encoded), nil

	default:
		return 0, fmt.Errorf("wire: unsupported type code %d", typeCode)
	}
}

// --------------------------------------------------------------------------
// Binary object encoding
// --------------------------------------------------------------------------

func (c defaultCodec) writeBinaryObject(buf []byte, value interface{}) ([]byte, error) {
	obj, ok := value.(BinaryObject)
	if !ok {
		if raw, ok := value.([]byte); ok {
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], uint32(len(raw)))
			buf = append(buf, tmp[:]...)
			return append(buf, raw...), nil
		}
		return nil, fmt.Errorf("wire: expected BinaryObject or []byte, got %T", value)
	}

	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(obj.TypeID))
	buf = append(buf, tmp4[:]...)

	var tmp2 [2]byte
	binary.LittleEndian.PutUint16(tmp2[:], uint16(len(obj.Fields)))
	buf = append(buf, tmp2[:]...)

	for _, f := range obj.Fields {
		binary.LittleEndian.PutUint32(tmp4[:], uint32(f.FieldID))
		buf = append(buf, tmp4[:]...)

		var err error
		buf, err = c.WriteObject(buf, f.Value, f.TypeCode)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// readBinaryObject parses the encoding written by writeBinaryObject,
// returning the decoded object and the number of bytes consumed.
func readBinaryObject(body []byte) (BinaryObject, int, error) {
	if len(body) < 6 {
		return BinaryObject{}, 0, fmt.Errorf("wire: truncated binary object header")
	}
	typeID := int32(binary.LittleEndian.Uint32(body[0:4]))
	fieldCount := int(binary.LittleEndian.Uint16(body[4:6]))
	pos := 6

	obj := BinaryObject{TypeID: typeID, Fields: make([]BinaryField, 0, fieldCount)}
	codec := defaultCodec{}

	for i := 0; i < fieldCount; i++ {
		if pos+4 > len(body) {
			return BinaryObject{}, 0, fmt.Errorf("wire: truncated binary object field id")
		}
		fieldID := int32(binary.LittleEndian.Uint32(body[pos : pos+4]))
		pos += 4

		if pos >= len(body) {
			return BinaryObject{}, 0, fmt.Errorf("wire: truncated binary object field value")
		}
		value, err := codec.ReadObject(body[pos:], TypeUnknown)
		if err != nil {
			return BinaryObject{}, 0, err
		}
		consumed, err := sizeOfEncoded(body[pos:])
		if err != nil {
			return BinaryObject{}, 0, err
		}
		obj.Fields = append(obj.Fields, BinaryField{
			FieldID:  fieldID,
			TypeCode: TypeCode(body[pos]),
			Value:    value,
		})
		pos += consumed
	}
	return obj, pos, nil
}

// sizeOfEncoded returns how many bytes one WriteObject-encoded value
// occupies at the start of buf, so readBinaryObject can advance past it.
func sizeOfEncoded(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, fmt.Errorf("wire: empty buffer")
	}
	switch TypeCode(buf[0]) {
	case TypeInteger:
		return 1 + 4, nil
	case TypeLong:
		return 1 + 8, nil
	case TypeString:
		if len(buf) < 5 {
			return 0, fmt.Errorf("wire: truncated string length")
		}
		n := binary.LittleEndian.Uint32(buf[1:5])
		return 1 + 4 + int(n), nil
	case TypeBoolean:
		return 1 + 1, nil
	case TypeUUID:
		return 1 + 16, nil
	case TypeBinaryObject, TypeComplexObject:
		_, consumed, err := readBinaryObject(buf[1:])
		return 1 + consumed, err
	default:
		return 0, fmt.Errorf("wire: unsupported type code %d", buf[0])
	}
}

// toBinaryObject reflects over a struct's exported fields, assigning each
// one a stable field id equal to its declaration index. This is the one
// place DefaultCodec resolves spec §9's note that "an implementation may
// short-circuit by reading the field directly from the in-memory structure
// as long as the resulting hash matches what the server would compute for
// the serialized form" — since there is no real server here, internal
// consistency (same struct, same field ids, every call) is the bar.
func toBinaryObject(value interface{}) BinaryObject {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	obj := BinaryObject{TypeID: typeID(rv.Type())}
	if rv.Kind() != reflect.Struct {
		return obj
	}

	codec := defaultCodec{}
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Type().Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		fv := rv.Field(i).Interface()
		obj.Fields = append(obj.Fields, BinaryField{
			FieldID:  int32(i),
			TypeCode: codec.GetTypeCode(fv),
			Value:    fv,
		})
	}
	return obj
}

// typeID derives a stable per-process type identifier from a struct's name.
// Real Ignite-family servers compute this the same way across client and
// server by hashing the type's fully qualified name; DefaultCodec mirrors
// that shape using the Go type's name instead.
func typeID(t reflect.Type) int32 {
	return hashString(t.String())
}

// --------------------------------------------------------------------------
// Hash helpers
// --------------------------------------------------------------------------

// hashString implements Java's String.hashCode(), the convention the
// Ignite-family wire protocol this spec describes is built on.
func hashString(s string) int32 {
	var h int32
	for _, r := range s {
		h = 31*h + int32(r)
	}
	return h
}

func hashLong(v int64) int32 {
	return int32(v) ^ int32(uint64(v)>>32)
}

func hashUUID(id uuid.UUID) int32 {
	msb := int64(binary.BigEndian.Uint64(id[0:8]))
	lsb := int64(binary.BigEndian.Uint64(id[8:16]))
	hilo := msb ^ lsb
	return hashLong(hilo)
}

func hashBytes(b []byte) int32 {
	var h int32 = 1
	for _, c := range b {
		h = 31*h + int32(c)
	}
	return h
}

func hashInt32(v int32) int32 {
	return v
}

func asInt32(value interface{}) (int32, error) {
	switch v := value.(type) {
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	default:
		return 0, fmt.Errorf("wire: expected int32 for TypeInteger, got %T", value)
	}
}
