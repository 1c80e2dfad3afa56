// Package gridclient implements the client-side routing and
// partition-awareness core of a thin TCP client for a distributed,
// partitioned in-memory key-value cluster.
//
// A caller builds a Client, calls Connect with a config.Config naming the
// cluster's endpoints, and then drives cache operations through Send,
// supplying an AffinityHint when it knows the key that determines
// partition placement. Everything below Send — session handshakes,
// connection pooling, the affinity distribution map, rendezvous hashing,
// and failover — is internal to the subpackages this package composes:
// session, pool, affinity, protocol and wire.
package gridclient
