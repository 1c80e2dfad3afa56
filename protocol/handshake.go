package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Feature bits negotiated during the handshake (spec §6).
const (
	FeaturePartitionAwareness uint8 = 1 << 0
)

// ProtocolVersion is the (major, minor, patch) version this module speaks.
type ProtocolVersion struct {
	Major, Minor, Patch int16
}

// HandshakeRequest is the first frame sent on every new connection (spec
// §4.1, §6): `1, ver_major, ver_minor, ver_patch, client_code, featureMask,
// [user, password]`.
type HandshakeRequest struct {
	Version        ProtocolVersion
	Features       uint8
	UserName       string
	Password       string
	HasCredentials bool
}

// WriteHandshakeRequest writes a handshake request frame to w.
func WriteHandshakeRequest(w io.Writer, req HandshakeRequest) error {
	buf := make([]byte, 0, 32)
	buf = append(buf, 1) // handshake message code, per spec §6
	buf = appendInt16(buf, req.Version.Major)
	buf = appendInt16(buf, req.Version.Minor)
	buf = appendInt16(buf, req.Version.Patch)
	buf = append(buf, byte(ClientCode))
	buf = append(buf, req.Features)

	if req.HasCredentials {
		buf = appendString(buf, req.UserName)
		buf = appendString(buf, req.Password)
	}

	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(len(buf)))
	if _, err := w.Write(length); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

// HandshakeResponse is the server's reply to a HandshakeRequest (spec §6):
// `success, ..., nodeId?, negotiated_feature_bitmask`.
type HandshakeResponse struct {
	Success  bool
	NodeId   *NodeId // nil on legacy servers that do not report a NodeId
	Features uint8
	// Rejection carries the server's reason when Success is false.
	Rejection string
}

// ReadHandshakeResponse reads and parses a handshake response frame from r.
func ReadHandshakeResponse(r io.Reader) (HandshakeResponse, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return HandshakeResponse{}, err
	}
	totalLen := binary.LittleEndian.Uint32(lenBuf)
	if totalLen == 0 {
		return HandshakeResponse{}, fmt.Errorf("protocol: empty handshake response")
	}

	body := make([]byte, totalLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return HandshakeResponse{}, err
	}

	pos := 0
	success := body[pos] != 0
	pos++

	if !success {
		msg, _ := readString(body, &pos)
		return HandshakeResponse{Success: false, Rejection: msg}, nil
	}

	hasNodeID := body[pos] != 0
	pos++

	resp := HandshakeResponse{Success: true}
	if hasNodeID {
		id, err := uuid.FromBytes(body[pos : pos+16])
		if err != nil {
			return HandshakeResponse{}, fmt.Errorf("protocol: invalid node id in handshake response: %w", err)
		}
		pos += 16
		resp.NodeId = &id
	}

	resp.Features = body[pos]
	pos++

	return resp, nil
}

// WriteHandshakeResponse writes a handshake response frame to w. Used by
// test servers in this module's test suite.
func WriteHandshakeResponse(w io.Writer, resp HandshakeResponse) error {
	buf := make([]byte, 0, 32)
	if !resp.Success {
		buf = append(buf, 0)
		buf = appendString(buf, resp.Rejection)
	} else {
		buf = append(buf, 1)
		if resp.NodeId != nil {
			buf = append(buf, 1)
			buf = append(buf, resp.NodeId[:]...)
		} else {
			buf = append(buf, 0)
		}
		buf = append(buf, resp.Features)
	}

	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(len(buf)))
	if _, err := w.Write(length); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

func appendInt16(buf []byte, v int16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(v))
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(s)))
	buf = append(buf, tmp[:]...)
	return append(buf, s...)
}

func readString(buf []byte, pos *int) (string, error) {
	if *pos+4 > len(buf) {
		return "", fmt.Errorf("protocol: truncated string length")
	}
	n := binary.LittleEndian.Uint32(buf[*pos : *pos+4])
	*pos += 4
	if *pos+int(n) > len(buf) {
		return "", fmt.Errorf("protocol: truncated string body")
	}
	s := string(buf[*pos : *pos+int(n)])
	*pos += int(n)
	return s, nil
}
