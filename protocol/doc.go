// Package protocol defines the wire-level primitives shared by every other
// package in this module: the error taxonomy, the request/response frame
// format, the handshake messages, operation codes, and the node identity and
// topology-version types used to route requests to the right cluster node.
//
// The package focuses on:
//   - A single Error type with a Kind enum, covering every failure mode the
//     router can surface (connection, handshake, auth, lost-connection,
//     server-side operation errors, illegal state/argument, serialization).
//   - The binary frame format used by session.Session to write requests and
//     read responses over a socket.
//   - NodeId (a 16-byte UUID) and AffinityTopologyVersion, the two identity
//     concepts the affinity map and connection pool are keyed by.
package protocol
