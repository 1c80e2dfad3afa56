package affinity

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/latticegrid/gridclient/protocol"
)

// PartitionsResponse is the decoded body of a CACHE_PARTITIONS response
// (spec §4.3's refresh protocol): the server's current topology version
// plus one CacheAffinityMap per cacheId listed in the response's cache
// groups (every cacheId of a group gets that group's entry).
type PartitionsResponse struct {
	Version protocol.AffinityTopologyVersion
	Caches  map[int32]CacheAffinityMap
}

// EncodePartitionsRequest writes the CACHE_PARTITIONS request body: the
// list of cacheIds the caller wants partition info for.
func EncodePartitionsRequest(cacheIds []int32) []byte {
	buf := make([]byte, 4, 4+4*len(cacheIds))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(cacheIds)))
	for _, id := range cacheIds {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(id))
		buf = append(buf, tmp[:]...)
	}
	return buf
}

// DecodePartitionsResponse parses a CACHE_PARTITIONS response body:
//
//	i64 versionMajor | i32 versionMinor | i32 groupCount
//	groups: i8 applicable | i32 cacheCount | cacheIds: i32 cacheId | i32 keyConfigCount | (i32 typeId | i32 fieldId)...
//	        i32 nodeCount | nodes: uuid nodeId | i32 partitionCount | (i32 partition)...
//
// Each cache named in a group shares that group's applicable flag,
// keyConfig (merged across its cacheIds entries) and inverted partition
// mapping, per spec §3's PartitionAwarenessCacheGroup.
func DecodePartitionsResponse(body []byte) (PartitionsResponse, error) {
	pos := 0
	readI32 := func() (int32, error) {
		if pos+4 > len(body) {
			return 0, fmt.Errorf("affinity: truncated partitions response")
		}
		v := int32(binary.LittleEndian.Uint32(body[pos : pos+4]))
		pos += 4
		return v, nil
	}
	readI64 := func() (int64, error) {
		if pos+8 > len(body) {
			return 0, fmt.Errorf("affinity: truncated partitions response")
		}
		v := int64(binary.LittleEndian.Uint64(body[pos : pos+8]))
		pos += 8
		return v, nil
	}

	major, err := readI64()
	if err != nil {
		return PartitionsResponse{}, err
	}
	minor, err := readI32()
	if err != nil {
		return PartitionsResponse{}, err
	}
	groupCount, err := readI32()
	if err != nil {
		return PartitionsResponse{}, err
	}

	resp := PartitionsResponse{
		Version: protocol.AffinityTopologyVersion{Major: major, Minor: minor},
		Caches:  make(map[int32]CacheAffinityMap),
	}

	for g := int32(0); g < groupCount; g++ {
		if pos >= len(body) {
			return PartitionsResponse{}, fmt.Errorf("affinity: truncated partitions response")
		}
		applicable := body[pos] != 0
		pos++

		cacheCount, err := readI32()
		if err != nil {
			return PartitionsResponse{}, err
		}

		cacheIds := make([]int32, 0, cacheCount)
		keyConfig := make(KeyConfig)
		for c := int32(0); c < cacheCount; c++ {
			cacheId, err := readI32()
			if err != nil {
				return PartitionsResponse{}, err
			}
			cacheIds = append(cacheIds, cacheId)

			entryCount, err := readI32()
			if err != nil {
				return PartitionsResponse{}, err
			}
			for e := int32(0); e < entryCount; e++ {
				typeId, err := readI32()
				if err != nil {
					return PartitionsResponse{}, err
				}
				fieldId, err := readI32()
				if err != nil {
					return PartitionsResponse{}, err
				}
				keyConfig[typeId] = fieldId
			}
		}

		nodeCount, err := readI32()
		if err != nil {
			return PartitionsResponse{}, err
		}

		partitionMapping := make(map[int32]protocol.NodeId)
		for n := int32(0); n < nodeCount; n++ {
			if pos+16 > len(body) {
				return PartitionsResponse{}, fmt.Errorf("affinity: truncated node id in partitions response")
			}
			nodeId, err := uuid.FromBytes(body[pos : pos+16])
			if err != nil {
				return PartitionsResponse{}, err
			}
			pos += 16

			partitionCount, err := readI32()
			if err != nil {
				return PartitionsResponse{}, err
			}
			for p := int32(0); p < partitionCount; p++ {
				partition, err := readI32()
				if err != nil {
					return PartitionsResponse{}, err
				}
				partitionMapping[partition] = nodeId
			}
		}

		entry := CacheAffinityMap{
			PartitionMapping: partitionMapping,
			KeyConfig:        keyConfig,
			Applicable:       applicable,
		}
		for _, cacheId := range cacheIds {
			resp.Caches[cacheId] = entry
		}
	}

	return resp, nil
}
