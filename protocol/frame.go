package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame format (little-endian, per spec §4.1 and §6):
//
//	Request:  i32 length | i16 opCode | i64 requestId | body
//	Response: i32 length | i64 requestId | i32 status | i8 flags |
//	          [flags&TopologyChanged: i64 major | i32 minor] |
//	          (status != 0: errorMessage bytes) | (status == 0: body)
//
// length counts every byte that follows it in the frame; the error message
// or body has no length prefix of its own and runs to the end of the frame.
const (
	requestHeaderLen  = 2 + 8 // opCode + requestId
	responseHeaderLen = 8 + 4 + 1

	// TopologyChanged is set in a response's flags byte when the cluster's
	// affinity topology version has advanced since the request was sent.
	TopologyChanged uint8 = 1 << 0
)

// WriteRequest writes one request frame to w. body is the already-encoded
// request payload produced by the caller's writer callback (spec §4.1).
func WriteRequest(w io.Writer, opCode OpCode, requestID uint64, body []byte) error {
	header := make([]byte, 4+requestHeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], uint32(requestHeaderLen+len(body)))
	binary.LittleEndian.PutUint16(header[4:6], uint16(opCode))
	binary.LittleEndian.PutUint64(header[6:14], requestID)

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

// ResponseHeader carries everything about a response frame except its
// payload (either the success body or the error message), which the caller
// reads separately once it knows the payload's length.
type ResponseHeader struct {
	RequestID    uint64
	Status       int32
	TopologyBump *AffinityTopologyVersion // nil unless the flags byte set TopologyChanged
	PayloadLen   uint32
}

// ReadResponseHeader reads and parses one response frame's header from r,
// leaving the reader positioned at the start of the payload (error message
// or body).
func ReadResponseHeader(r io.Reader) (ResponseHeader, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return ResponseHeader{}, err
	}
	totalLen := binary.LittleEndian.Uint32(lenBuf)
	if totalLen < responseHeaderLen {
		return ResponseHeader{}, fmt.Errorf("protocol: response frame too short: %d bytes", totalLen)
	}

	fixed := make([]byte, responseHeaderLen)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return ResponseHeader{}, err
	}

	hdr := ResponseHeader{
		RequestID: binary.LittleEndian.Uint64(fixed[0:8]),
		Status:    int32(binary.LittleEndian.Uint32(fixed[8:12])),
	}
	flags := fixed[12]
	remaining := totalLen - responseHeaderLen

	if flags&TopologyChanged != 0 {
		verBuf := make([]byte, 12)
		if _, err := io.ReadFull(r, verBuf); err != nil {
			return ResponseHeader{}, err
		}
		hdr.TopologyBump = &AffinityTopologyVersion{
			Major: int64(binary.LittleEndian.Uint64(verBuf[0:8])),
			Minor: int32(binary.LittleEndian.Uint32(verBuf[8:12])),
		}
		remaining -= 12
	}

	hdr.PayloadLen = remaining
	return hdr, nil
}

// WriteResponse writes one response frame to w. On success (status == 0)
// payload is the response body; otherwise it is the UTF-8 error message.
func WriteResponse(w io.Writer, requestID uint64, status int32, bump *AffinityTopologyVersion, payload []byte) error {
	var flags uint8
	var verBytes []byte
	if bump != nil {
		flags |= TopologyChanged
		verBytes = make([]byte, 12)
		binary.LittleEndian.PutUint64(verBytes[0:8], uint64(bump.Major))
		binary.LittleEndian.PutUint32(verBytes[8:12], uint32(bump.Minor))
	}

	totalLen := uint32(responseHeaderLen + len(verBytes) + len(payload))
	header := make([]byte, 4+responseHeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], totalLen)
	binary.LittleEndian.PutUint64(header[4:12], requestID)
	binary.LittleEndian.PutUint32(header[12:16], uint32(status))
	header[16] = flags

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(verBytes) > 0 {
		if _, err := w.Write(verBytes); err != nil {
			return err
		}
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}
