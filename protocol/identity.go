package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeId identifies a cluster node across reconnects. It is reported by the
// server during the handshake (spec §3) and is absent on legacy servers.
type NodeId = uuid.UUID

// Endpoint is a "host:port" string naming one cluster member.
type Endpoint string

// AffinityTopologyVersion is the pair (major, minor) the cluster advances on
// every membership or partition-assignment change. Ordering is
// lexicographic: a version is newer iff its major is greater, or its major
// is equal and its minor is greater.
type AffinityTopologyVersion struct {
	Major int64
	Minor int32
}

// Compare returns -1, 0 or 1 depending on whether v is older than, equal to,
// or newer than other.
func (v AffinityTopologyVersion) Compare(other AffinityTopologyVersion) int {
	switch {
	case v.Major < other.Major:
		return -1
	case v.Major > other.Major:
		return 1
	case v.Minor < other.Minor:
		return -1
	case v.Minor > other.Minor:
		return 1
	default:
		return 0
	}
}

// Newer reports whether v is strictly newer than other.
func (v AffinityTopologyVersion) Newer(other AffinityTopologyVersion) bool {
	return v.Compare(other) > 0
}

func (v AffinityTopologyVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
