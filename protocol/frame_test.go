package protocol

import (
	"bytes"
	"testing"
)

func TestWriteRequestWritesNonEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequest(&buf, OpCachePartitions, 7, []byte("payload")); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}

	// Sanity: a request frame is not a response frame, but the fixed
	// header layout (length prefix first) is shared, so this only checks
	// that WriteRequest produced a non-empty, length-prefixed frame.
	if buf.Len() == 0 {
		t.Fatal("expected WriteRequest to write a non-empty frame")
	}
}

func TestWriteResponseAndReadResponseHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, 99, 0, nil, []byte("ok")); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	hdr, err := ReadResponseHeader(&buf)
	if err != nil {
		t.Fatalf("ReadResponseHeader: %v", err)
	}
	if hdr.RequestID != 99 {
		t.Errorf("expected RequestID 99, got %d", hdr.RequestID)
	}
	if hdr.Status != 0 {
		t.Errorf("expected Status 0, got %d", hdr.Status)
	}
	if hdr.PayloadLen != 2 {
		t.Errorf("expected PayloadLen 2, got %d", hdr.PayloadLen)
	}
	if hdr.TopologyBump != nil {
		t.Errorf("expected no topology bump, got %v", hdr.TopologyBump)
	}

	payload := make([]byte, hdr.PayloadLen)
	if _, err := buf.Read(payload); err != nil {
		t.Fatalf("failed to read payload: %v", err)
	}
	if string(payload) != "ok" {
		t.Errorf("expected payload %q, got %q", "ok", payload)
	}
}

func TestWriteResponseWithTopologyBump(t *testing.T) {
	var buf bytes.Buffer
	bump := &AffinityTopologyVersion{Major: 5, Minor: 2}
	if err := WriteResponse(&buf, 1, 0, bump, []byte("v")); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	hdr, err := ReadResponseHeader(&buf)
	if err != nil {
		t.Fatalf("ReadResponseHeader: %v", err)
	}
	if hdr.TopologyBump == nil {
		t.Fatal("expected a topology bump to be reported")
	}
	if hdr.TopologyBump.Major != 5 || hdr.TopologyBump.Minor != 2 {
		t.Errorf("expected (5, 2), got (%d, %d)", hdr.TopologyBump.Major, hdr.TopologyBump.Minor)
	}
	if hdr.PayloadLen != 1 {
		t.Errorf("expected PayloadLen 1, got %d", hdr.PayloadLen)
	}
}

func TestWriteResponseWithErrorStatusCarriesMessageAsPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, 3, 42, nil, []byte("cache does not exist")); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	hdr, err := ReadResponseHeader(&buf)
	if err != nil {
		t.Fatalf("ReadResponseHeader: %v", err)
	}
	if hdr.Status != 42 {
		t.Errorf("expected Status 42, got %d", hdr.Status)
	}
	if int(hdr.PayloadLen) != len("cache does not exist") {
		t.Errorf("expected PayloadLen %d, got %d", len("cache does not exist"), hdr.PayloadLen)
	}
}

func TestReadResponseHeaderRejectsTruncatedFrame(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0}) // length prefix claims 0 bytes follow
	if _, err := ReadResponseHeader(buf); err == nil {
		t.Fatal("expected an error for a frame shorter than the fixed response header")
	}
}
