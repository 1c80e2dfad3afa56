// Package affinity implements spec §4.3: the versioned per-cache
// partition-to-node distribution map, its CACHE_PARTITIONS refresh
// protocol, rendezvous partition hashing, and affinity-key resolution.
package affinity

import (
	"sync"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/latticegrid/gridclient/protocol"
)

var log = logger.GetLogger("affinity")

// KeyConfig maps a key's typeId to the fieldId that determines its
// partition placement, per spec §3's PartitionAwarenessCacheGroup.
type KeyConfig map[int32]int32

// CacheAffinityMap is spec §3's stored, per-cache entry: partitionMapping
// inverted from the wire form (nodeId -> partitions) to (partition ->
// nodeId), plus the cache's affinity key configuration.
type CacheAffinityMap struct {
	PartitionMapping map[int32]protocol.NodeId
	KeyConfig        KeyConfig
	Applicable       bool
}

// DistributionMap is spec §3's `cacheId -> CacheAffinityMap`, versioned by
// the affinity topology version it was computed against (I4).
type DistributionMap struct {
	mu      sync.RWMutex
	version protocol.AffinityTopologyVersion
	caches  map[int32]CacheAffinityMap

	// pending tracks cacheIds with an in-flight refresh, so a burst of
	// misses for the same cache only fires one CACHE_PARTITIONS request.
	pending map[int32]bool
}

// NewDistributionMap creates an empty map at the zero topology version.
func NewDistributionMap() *DistributionMap {
	return &DistributionMap{
		caches:  make(map[int32]CacheAffinityMap),
		pending: make(map[int32]bool),
	}
}

// Version returns the topology version the map is currently valid for.
func (d *DistributionMap) Version() protocol.AffinityTopologyVersion {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Lookup returns the stored entry for cacheId, if present (I4: always
// valid for d.version, since a newer response clears stale entries).
func (d *DistributionMap) Lookup(cacheId int32) (CacheAffinityMap, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.caches[cacheId]
	return m, ok
}

// BeginRefresh records cacheId as having an in-flight CACHE_PARTITIONS
// request and reports whether the caller is the one who should actually
// send it (false means a refresh for this cacheId is already outstanding).
func (d *DistributionMap) BeginRefresh(cacheId int32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[cacheId] {
		return false
	}
	d.pending[cacheId] = true
	return true
}

func (d *DistributionMap) endRefresh(cacheId int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, cacheId)
}

// OnTopologyChanged implements spec §4.3's topology-change notification:
// if version is strictly newer than the map's current version, the map is
// cleared and the version advanced (I4, P4). Reports whether the map was
// actually cleared, so the router knows whether to trigger a background
// connect (I3 may now be violable as nodes join).
func (d *DistributionMap) OnTopologyChanged(version protocol.AffinityTopologyVersion) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !version.Newer(d.version) {
		return false
	}
	d.version = version
	d.caches = make(map[int32]CacheAffinityMap)
	return true
}

// ApplyRefresh merges a CACHE_PARTITIONS response into the map per spec
// §4.3: newer version clears and adopts; older is discarded; equal merges
// new cache entries only (existing entries for caches already present are
// left alone, since a same-version response cannot change them).
func (d *DistributionMap) ApplyRefresh(resp PartitionsResponse) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmp := resp.Version.Compare(d.version)
	switch {
	case cmp > 0:
		d.version = resp.Version
		d.caches = make(map[int32]CacheAffinityMap)
	case cmp < 0:
		log.Debugf("discarding stale partitions response at version %s (current %s)", resp.Version, d.version)
		return
	}

	for cacheId, entry := range resp.Caches {
		if cmp == 0 {
			if _, exists := d.caches[cacheId]; exists {
				continue
			}
		}
		d.caches[cacheId] = entry
	}
}

// EndRefresh is called by the router once a CACHE_PARTITIONS round trip
// finishes (success or failure), clearing the in-flight marker.
func (d *DistributionMap) EndRefresh(cacheId int32) {
	d.endRefresh(cacheId)
}

// ResolveNode implements spec §4.3's "selecting a node" step:
// partition = rendezvous(keyHash, |partitionMapping|); targetNodeId =
// partitionMapping[partition]. It returns (nodeId, true) only when the
// cache's affinity map is populated and applicable.
func (entry CacheAffinityMap) ResolveNode(keyHash int32) (protocol.NodeId, bool) {
	n := len(entry.PartitionMapping)
	if !entry.Applicable || n == 0 {
		return protocol.NodeId{}, false
	}
	partition := Rendezvous(keyHash, n)
	nodeId, ok := entry.PartitionMapping[partition]
	return nodeId, ok
}

