package protocol

// OpCode identifies a request's operation. Cache-operation opcodes (put,
// get, replace, ...) are opaque pass-throughs from the cache layer (spec
// §1); the core itself only needs to know about CACHE_PARTITIONS, which it
// uses to refresh the affinity map.
type OpCode int16

const (
	// OpCachePartitions requests the current partition-to-node distribution
	// map for one or more caches (spec §4.3).
	OpCachePartitions OpCode = 1101
)

// ClientCode identifies this module to the server during the handshake
// (spec §6). 2 is the thin-client code in the wire protocol this spec
// describes.
const ClientCode int8 = 2
