// Package wire defines the codec boundary spec.md §1 treats as external: a
// pure encode(value, type) / decode(bytes, type) / hashCode(value, type)
// object serializer. The core (session, pool, affinity, router) never
// touches an object's bytes directly; it only calls through Codec.
//
// DefaultCodec is this module's own implementation, grounded on
// rpc/serializer/binaryImpl.go's length-prefixed, flag-driven approach but
// keyed by an explicit per-value TypeCode rather than dKV's per-field
// presence bitmask, since spec §4.3 requires a type code to decide affinity
// handling (BINARY_OBJECT / COMPLEX_OBJECT vs. primitives).
package wire

// TypeCode identifies the wire type of a key or value, per spec §4.3 step 1.
type TypeCode int8

const (
	TypeUnknown TypeCode = iota
	TypeInteger
	TypeLong
	TypeString
	TypeBoolean
	TypeUUID
	TypeBinaryObject   // opaque, already-encoded "binary object" form
	TypeComplexObject  // a Go struct the codec must reflect over
)

// Codec is the external object (de)serialization and hashing collaborator
// spec.md §1 and §6 describe. Implementations must be safe for concurrent
// use; the router and affinity map call into a single shared Codec from
// multiple goroutines.
type Codec interface {
	// WriteObject encodes value as typeCode into buf, per spec §6's
	// codec.writeObject(buf, value, type) contract.
	WriteObject(buf []byte, value interface{}, typeCode TypeCode) ([]byte, error)

	// ReadObject decodes a value of typeCode from buf. If typeCode is
	// TypeUnknown, the codec infers it from the leading type-code byte it
	// wrote during WriteObject.
	ReadObject(buf []byte, typeCode TypeCode) (interface{}, error)

	// HashCode computes the server-compatible hash of value as typeCode,
	// consumed by affinity.Rendezvous (spec §4.3 step 3).
	HashCode(value interface{}, typeCode TypeCode) (int32, error)

	// GetTypeCode infers the wire TypeCode for a Go value when the caller
	// did not supply one explicitly (spec §4.3 step 1).
	GetTypeCode(value interface{}) TypeCode
}
