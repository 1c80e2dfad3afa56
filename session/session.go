// Package session implements the node session described in spec §4.1: one
// socket to one cluster member, a handshake, and async request/response
// multiplexing keyed by request id. It is the direct descendant of
// rpc/transport/base/client.go's clientConnection, generalized from a single
// fixed "shard id" wire format to this module's opCode-addressed frames and
// stripped of the retry loop (retries belong to the router, spec §4.4).
package session

import (
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/latticegrid/gridclient/protocol"
)

var log = logger.GetLogger("session")

// responseResult is what the read pump hands back to a blocked sendRequest
// call: either the raw response payload or an error. Decoding into a value
// happens in SendRequest, after the result has crossed back to the caller's
// goroutine, so a slow reader callback never blocks the read pump.
type responseResult struct {
	payload []byte
	err     error
}

// TopologyObserver is notified whenever a response frame carries a newer
// affinity topology version than the one the caller last saw (spec §4.3's
// "topology-change notification"). The router passes itself in at
// construction time rather than the session holding a back-reference (spec
// §9's back-reference note).
type TopologyObserver interface {
	OnTopologyChanged(version protocol.AffinityTopologyVersion)
}

// Session is one live connection to a cluster member, past a successful
// handshake.
type Session struct {
	conn     net.Conn
	endpoint string
	nodeId   *protocol.NodeId
	version  protocol.ProtocolVersion
	features uint8

	timeout time.Duration

	writeMu sync.Mutex
	pending *xsync.MapOf[uint64, chan responseResult]

	nextRequestID uint64

	observer TopologyObserver

	closeOnce sync.Once
	closed    chan struct{}
}

// Options configures Connect.
type Options struct {
	UseTLS                 bool
	TLSConfig              *tls.Config
	UserName               string
	Password               string
	WantPartitionAwareness bool
	TimeoutSecond          int
	Observer               TopologyObserver
}

// Connect opens a socket to endpoint and performs the handshake (spec
// §4.1's connect() contract). On success it starts the read pump and
// returns a Session ready for SendRequest.
func Connect(endpoint string, opts Options) (*Session, error) {
	dialer := net.Dialer{Timeout: dialTimeout(opts.TimeoutSecond)}

	var conn net.Conn
	var err error
	if opts.UseTLS {
		conn, err = tls.DialWithDialer(&dialer, "tcp", endpoint, opts.TLSConfig)
	} else {
		conn, err = dialer.Dial("tcp", endpoint)
	}
	if err != nil {
		return nil, protocol.NewErrorf(protocol.KindConnectionFailed, "connection failed to %s: %v", endpoint, err)
	}

	s := &Session{
		conn:          conn,
		endpoint:      endpoint,
		timeout:       time.Duration(opts.TimeoutSecond) * time.Second,
		pending:       xsync.NewMapOf[uint64, chan responseResult](),
		nextRequestID: 1,
		observer:      opts.Observer,
		closed:        make(chan struct{}),
	}

	if err := s.handshake(opts); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readPump()
	return s, nil
}

func dialTimeout(timeoutSecond int) time.Duration {
	if timeoutSecond <= 0 {
		return 10 * time.Second
	}
	return time.Duration(timeoutSecond) * time.Second
}

func (s *Session) handshake(opts Options) error {
	features := uint8(0)
	if opts.WantPartitionAwareness {
		features |= protocol.FeaturePartitionAwareness
	}

	req := protocol.HandshakeRequest{
		Version:        protocol.ProtocolVersion{Major: 1, Minor: 7, Patch: 0},
		Features:       features,
		UserName:       opts.UserName,
		Password:       opts.Password,
		HasCredentials: opts.UserName != "" || opts.Password != "",
	}

	if s.timeout > 0 {
		s.conn.SetDeadline(time.Now().Add(s.timeout))
		defer s.conn.SetDeadline(time.Time{})
	}

	if err := protocol.WriteHandshakeRequest(s.conn, req); err != nil {
		return protocol.NewErrorf(protocol.KindConnectionFailed, "failed to write handshake to %s: %v", s.endpoint, err)
	}

	resp, err := protocol.ReadHandshakeResponse(s.conn)
	if err != nil {
		return protocol.NewErrorf(protocol.KindHandshakeFailed, "failed to read handshake response from %s: %v", s.endpoint, err)
	}
	if !resp.Success {
		if isAuthRejection(resp.Rejection) {
			return protocol.NewErrorf(protocol.KindAuthFailed, "authentication rejected by %s: %s", s.endpoint, resp.Rejection)
		}
		return protocol.NewErrorf(protocol.KindHandshakeFailed, "handshake rejected by %s: %s", s.endpoint, resp.Rejection)
	}

	s.nodeId = resp.NodeId
	s.features = resp.Features
	s.version = req.Version
	return nil
}

func isAuthRejection(msg string) bool {
	return msg == "authentication failed" || msg == "invalid credentials"
}

// NodeId returns the server-reported NodeId, or nil if the server did not
// report one (legacy server, spec §3).
func (s *Session) NodeId() *protocol.NodeId { return s.nodeId }

// Endpoint returns the "host:port" this session is connected to.
func (s *Session) Endpoint() string { return s.endpoint }

// HasPartitionAwareness reports whether both sides negotiated partition
// awareness during the handshake.
func (s *Session) HasPartitionAwareness() bool {
	return s.features&protocol.FeaturePartitionAwareness != 0
}

// SendRequest implements spec §4.1's sendRequest(opCode, writer, reader):
// assigns a fresh request id, writes the frame produced by writer, blocks
// until the matching response arrives, then decodes it with reader.
func (s *Session) SendRequest(
	opCode protocol.OpCode,
	writer func([]byte) ([]byte, error),
	reader func([]byte) (interface{}, error),
) (interface{}, error) {
	select {
	case <-s.closed:
		return nil, protocol.NewError(protocol.KindLostConnection, "session is closed")
	default:
	}

	requestID := atomic.AddUint64(&s.nextRequestID, 1)

	respCh := make(chan responseResult, 1)
	s.pending.Store(requestID, respCh)
	defer s.pending.Delete(requestID)

	body, err := writer(nil)
	if err != nil {
		return nil, protocol.NewErrorf(protocol.KindSerialization, "failed to encode request: %v", err)
	}

	if s.timeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}

	s.writeMu.Lock()
	writeErr := protocol.WriteRequest(s.conn, opCode, requestID, body)
	s.writeMu.Unlock()

	if writeErr != nil {
		return nil, protocol.NewErrorf(protocol.KindLostConnection, "failed to write request to %s: %v", s.endpoint, writeErr)
	}

	var timeoutCh <-chan time.Time
	if s.timeout > 0 {
		timeoutCh = time.After(s.timeout)
	} else {
		timeoutCh = make(chan time.Time)
	}

	select {
	case result := <-respCh:
		if result.err != nil {
			return nil, result.err
		}
		if reader == nil {
			return nil, nil
		}
		value, err := reader(result.payload)
		if err != nil {
			return nil, protocol.NewErrorf(protocol.KindSerialization, "failed to decode response: %v", err)
		}
		return value, nil
	case <-s.closed:
		return nil, protocol.NewErrorf(protocol.KindLostConnection, "session to %s was disconnected while request %d was outstanding", s.endpoint, requestID)
	case <-timeoutCh:
		return nil, protocol.NewErrorf(protocol.KindLostConnection, "request %d to %s timed out", requestID, s.endpoint)
	}
}

// Disconnect closes the socket and fails every pending request with
// KindLostConnection, per spec §4.1.
func (s *Session) Disconnect() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()

		s.pending.Range(func(requestID uint64, ch chan responseResult) bool {
			select {
			case ch <- responseResult{err: protocol.NewErrorf(protocol.KindLostConnection, "session to %s disconnected", s.endpoint)}:
			default:
			}
			return true
		})
	})
}

// readPump is the dedicated reader goroutine spec §4.1 and §5 require:
// reads run independently of writes, which are serialized by writeMu.
func (s *Session) readPump() {
	defer s.Disconnect()

	for {
		select {
		case <-s.closed:
			return
		default:
		}

		if s.timeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.timeout))
		} else {
			s.conn.SetReadDeadline(time.Time{})
		}

		hdr, err := protocol.ReadResponseHeader(s.conn)
		if err != nil {
			log.Debugf("session %s: read pump stopping: %v", s.endpoint, err)
			return
		}

		payload := make([]byte, hdr.PayloadLen)
		if hdr.PayloadLen > 0 {
			if _, err := readFull(s.conn, payload); err != nil {
				log.Debugf("session %s: failed to read response payload: %v", s.endpoint, err)
				return
			}
		}

		if hdr.TopologyBump != nil && s.observer != nil {
			s.observer.OnTopologyChanged(*hdr.TopologyBump)
		}

		ch, found := s.pending.LoadAndDelete(hdr.RequestID)
		if !found {
			log.Warningf("session %s: response for unknown request id %d", s.endpoint, hdr.RequestID)
			continue
		}

		if hdr.Status != 0 {
			ch <- responseResult{err: protocol.NewOperationError(hdr.Status, string(payload))}
			continue
		}

		ch <- responseResult{payload: payload}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
