// Package pool implements the connection pool of spec §4.2: sessions keyed
// by NodeId, a separate legacy slot for servers that do not report one, an
// inactive-endpoint list, and the background connector that tries to reach
// "one session per reachable node" under partition awareness.
//
// It generalizes rpc/transport/base/client.go's clientTransport (which
// tracked a flat, unkeyed slice of connections picked by round robin) to a
// map keyed by server identity, since spec §4.3's affinity routing needs to
// address a session by the NodeId the distribution map names.
package pool

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/latticegrid/gridclient/metrics"
	"github.com/latticegrid/gridclient/protocol"
	"github.com/latticegrid/gridclient/session"
)

var log = logger.GetLogger("pool")

// Pool tracks every live session to the cluster, per spec §4.2.
type Pool struct {
	sessions *xsync.MapOf[protocol.NodeId, *session.Session]

	legacyMu sync.Mutex
	legacy   *session.Session

	inactiveMu sync.Mutex
	inactive   []string

	partitionAwarenessAllowed bool
	partitionAwarenessActive  atomic.Bool

	connector *connector
}

// New creates an empty Pool. dial opens and hands back a handshaken
// session for one endpoint (grounded on session.Connect); isConnected lets
// the background connector stop early once the router has left the
// Connected state (spec §4.2).
func New(dial func(endpoint string) (*session.Session, error), partitionAwarenessAllowed bool, isConnected func() bool) *Pool {
	p := &Pool{
		sessions:                  xsync.NewMapOf[protocol.NodeId, *session.Session](),
		partitionAwarenessAllowed: partitionAwarenessAllowed,
	}
	p.connector = newConnector(p, dial, isConnected)
	return p
}

// AddSession implements spec §4.2's addSession: stores by NodeId (closing
// any prior session under the same id) when partition awareness is
// permitted and the session reported one, otherwise replaces the legacy
// slot. Either way the endpoint is dropped from the inactive list and
// partitionAwarenessActive is recomputed (I3).
func (p *Pool) AddSession(s *session.Session) {
	if p.partitionAwarenessAllowed && s.NodeId() != nil {
		nodeId := *s.NodeId()
		if old, found := p.sessions.Load(nodeId); found && old != s {
			old.Disconnect()
		}
		p.sessions.Store(nodeId, s)
	} else {
		p.legacyMu.Lock()
		old := p.legacy
		p.legacy = s
		p.legacyMu.Unlock()
		if old != nil && old != s {
			old.Disconnect()
		}
	}

	p.removeFromInactive(s.Endpoint())
	p.recomputePartitionAwareness()
}

// RemoveSession implements spec §4.2's removeSession: the inverse of
// AddSession, appending the endpoint back to the inactive list.
func (p *Pool) RemoveSession(s *session.Session) {
	removed := false

	if s.NodeId() != nil {
		if existing, found := p.sessions.Load(*s.NodeId()); found && existing == s {
			p.sessions.Delete(*s.NodeId())
			removed = true
		}
	}

	p.legacyMu.Lock()
	if p.legacy == s {
		p.legacy = nil
		removed = true
	}
	p.legacyMu.Unlock()

	if removed {
		p.addToInactive(s.Endpoint())
	}
	p.recomputePartitionAwareness()
}

// AllSessions returns a stable snapshot of every live session, per spec
// §4.2's allSessions().
func (p *Pool) AllSessions() []*session.Session {
	var all []*session.Session

	p.legacyMu.Lock()
	if p.legacy != nil {
		all = append(all, p.legacy)
	}
	p.legacyMu.Unlock()

	p.sessions.Range(func(_ protocol.NodeId, s *session.Session) bool {
		all = append(all, s)
		return true
	})
	return all
}

// RandomSession implements spec §4.2's randomSession: uniform selection
// over live sessions, erroring if the pool is empty.
func (p *Pool) RandomSession() (*session.Session, error) {
	all := p.AllSessions()
	if len(all) == 0 {
		return nil, protocol.NewError(protocol.KindLostConnection, "connection pool is empty")
	}
	return all[rand.Intn(len(all))], nil
}

// Get returns the session for nodeId, if one is currently pooled.
func (p *Pool) Get(nodeId protocol.NodeId) (*session.Session, bool) {
	return p.sessions.Load(nodeId)
}

// PartitionAwarenessActive reports I3: partition-aware routing is only
// trusted once the pool holds at least two sessions identified by NodeId
// (a single node can't demonstrate scatter, and the legacy slot never
// counts, since its session carries no NodeId to route by).
func (p *Pool) PartitionAwarenessActive() bool {
	return p.partitionAwarenessActive.Load()
}

func (p *Pool) recomputePartitionAwareness() {
	active := p.partitionAwarenessAllowed && p.sessions.Size() >= 2
	p.partitionAwarenessActive.Store(active)
	metrics.SetSessionsActive(len(p.AllSessions()))
}

// MarkInactive records endpoint as unreachable so the background connector
// retries it later.
func (p *Pool) MarkInactive(endpoint string) {
	p.addToInactive(endpoint)
}

func (p *Pool) addToInactive(endpoint string) {
	p.inactiveMu.Lock()
	defer p.inactiveMu.Unlock()
	for _, e := range p.inactive {
		if e == endpoint {
			return
		}
	}
	p.inactive = append(p.inactive, endpoint)
}

func (p *Pool) removeFromInactive(endpoint string) {
	p.inactiveMu.Lock()
	defer p.inactiveMu.Unlock()
	for i, e := range p.inactive {
		if e == endpoint {
			p.inactive = append(p.inactive[:i], p.inactive[i+1:]...)
			return
		}
	}
}

func (p *Pool) snapshotInactive() []string {
	p.inactiveMu.Lock()
	defer p.inactiveMu.Unlock()
	out := make([]string, len(p.inactive))
	copy(out, p.inactive)
	return out
}

// RunBackgroundConnect triggers the background connector (spec §4.2). It is
// safe to call repeatedly; at most one sweep runs at a time.
func (p *Pool) RunBackgroundConnect() {
	p.connector.run()
}

// AwaitBackgroundConnectIdle blocks until no background-connect sweep is
// in flight. Used by the router's reconnect (spec §5) before it
// re-marks every configured endpoint inactive, so a sweep that started
// under the old inactive list can't race its AddSession calls against the
// fresh one.
func (p *Pool) AwaitBackgroundConnectIdle() {
	p.connector.awaitIdle()
}

// Close disconnects every pooled session, legacy included.
func (p *Pool) Close() {
	p.legacyMu.Lock()
	if p.legacy != nil {
		p.legacy.Disconnect()
		p.legacy = nil
	}
	p.legacyMu.Unlock()

	p.sessions.Range(func(nodeId protocol.NodeId, s *session.Session) bool {
		s.Disconnect()
		p.sessions.Delete(nodeId)
		return true
	})
}
