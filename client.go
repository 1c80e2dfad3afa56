package gridclient

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/latticegrid/gridclient/affinity"
	"github.com/latticegrid/gridclient/config"
	"github.com/latticegrid/gridclient/metrics"
	"github.com/latticegrid/gridclient/pool"
	"github.com/latticegrid/gridclient/protocol"
	"github.com/latticegrid/gridclient/session"
	"github.com/latticegrid/gridclient/wire"
)

var log = logger.GetLogger("router")

// AffinityHint is what a cache operation supplies to Send (spec §3):
// enough information to resolve the key to a partition, if the router is
// in partition-aware mode.
type AffinityHint struct {
	CacheId int32
	Key     interface{}
	KeyType *wire.TypeCode
}

// Client is the router/dispatch core spec §2 and §4.4 describe: the public
// surface an embedding cache layer drives cache operations through.
type Client struct {
	codec wire.Codec

	mu       sync.RWMutex
	state    State
	cfg      config.Config
	pool     *pool.Pool
	dist     *affinity.DistributionMap
	onChange StateChangeFunc
}

// New creates a Client bound to codec, the external object
// (de)serialization and hashing collaborator (spec §1, §6). codec must be
// safe for concurrent use.
func New(codec wire.Codec) *Client {
	c := &Client{
		codec: codec,
		state: Disconnected,
		dist:  affinity.NewDistributionMap(),
	}
	c.pool = pool.New(c.dial, false, c.isConnected)
	return c
}

// OnStateChanged registers the callback spec §6 fires on every state
// transition. Only one callback is supported at a time; registering a new
// one replaces the old.
func (c *Client) OnStateChanged(fn StateChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the router's current state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State, reason error) {
	c.mu.Lock()
	c.state = s
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb(s, reason)
	}
}

func (c *Client) isConnected() bool {
	return c.State() == Connected
}

// Connect implements spec §4.4's Disconnected -> Connecting -> Connected
// transition: it validates cfg, marks every configured endpoint inactive
// (spec §3: at any instant, endpoints partition into active/inactive), and
// sweeps them, starting at a random endpoint and wrapping around, until one
// handshake succeeds. The first
// success wins; the background connector is then triggered to fill in the
// rest of the endpoints the sweep left inactive.
func (c *Client) Connect(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return protocol.NewErrorf(protocol.KindIllegalArgument, "%v", err)
	}

	c.mu.Lock()
	if c.state != Disconnected {
		state := c.state
		c.mu.Unlock()
		return protocol.NewErrorf(protocol.KindIllegalState, "connect called in state %s", state)
	}
	c.cfg = cfg
	c.mu.Unlock()

	c.setState(Connecting, nil)

	c.pool = pool.New(c.dial, cfg.PartitionAwareness, c.isConnected)
	for _, ep := range cfg.Endpoints {
		c.pool.MarkInactive(ep)
	}

	return c.sweep(cfg.Endpoints, "initial connect")
}

// reconnect implements spec §4.4 and §5's Connected --all-sessions-lost-->
// Connecting -> (Connected|Disconnected) transition. It waits for any
// in-flight background-connect sweep to quiesce, re-marks every configured
// endpoint inactive, and runs the same endpoint sweep connect() does.
func (c *Client) reconnect() {
	c.setState(Connecting, nil)
	c.pool.AwaitBackgroundConnectIdle()

	c.mu.RLock()
	endpoints := c.cfg.Endpoints
	c.mu.RUnlock()

	for _, ep := range endpoints {
		c.pool.MarkInactive(ep)
	}

	c.sweep(endpoints, "reconnect")
}

// sweep tries every endpoint, starting at a random index and wrapping
// around, until one handshake succeeds (spec §4.4's initial connect() and
// §5's reconnect() share this sweep). label only distinguishes the two
// call sites in logs.
func (c *Client) sweep(endpoints []string, label string) error {
	start := rand.Intn(len(endpoints))

	var lastErr error
	for i := 0; i < len(endpoints); i++ {
		endpoint := endpoints[(start+i)%len(endpoints)]

		s, err := c.dial(endpoint)
		if err != nil {
			lastErr = err
			log.Warningf("%s to %s failed: %v", label, endpoint, err)
			continue
		}

		c.pool.AddSession(s)
		c.setState(Connected, nil)
		c.pool.RunBackgroundConnect()
		return nil
	}

	err := protocol.NewErrorf(protocol.KindConnectionFailed, "%s failed to every configured endpoint: %v", label, lastErr)
	c.setState(Disconnected, err)
	return err
}

// dial opens and hand-shakes a session to endpoint, wiring the Client in
// as the session's topology-change observer (spec §9's handle-not-owning-
// reference note: the session only ever calls back through the
// session.TopologyObserver interface, never holds a Client field).
func (c *Client) dial(endpoint string) (*session.Session, error) {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	return session.Connect(endpoint, session.Options{
		UseTLS:                 cfg.UseTLS,
		TLSConfig:              cfg.TLSConfig,
		UserName:               cfg.UserName,
		Password:               cfg.Password,
		WantPartitionAwareness: cfg.PartitionAwareness,
		TimeoutSecond:          cfg.TimeoutSecond,
		Observer:               c,
	})
}

// OnTopologyChanged implements session.TopologyObserver. It is invoked
// from a session's read pump whenever a response frame carries a newer
// affinity topology version (spec §4.3).
func (c *Client) OnTopologyChanged(version protocol.AffinityTopologyVersion) {
	if c.dist.OnTopologyChanged(version) {
		c.pool.RunBackgroundConnect()
	}
}

// Send implements spec §4.4's public contract: send(opCode, writer,
// reader?, affinityHint?). It requires the router to be Connected.
func (c *Client) Send(
	opCode protocol.OpCode,
	writer func([]byte) ([]byte, error),
	reader func([]byte) (interface{}, error),
	hint *AffinityHint,
) (interface{}, error) {
	if c.State() != Connected {
		return nil, protocol.NewErrorf(protocol.KindIllegalState, "%s", c.State())
	}
	metrics.IncRequests()

	for {
		s, err := c.chooseSession(hint)
		if err != nil {
			return nil, err
		}

		value, err := s.SendRequest(opCode, writer, reader)
		if err == nil {
			return value, nil
		}

		if !protocol.Is(err, protocol.KindLostConnection) {
			return nil, err
		}

		c.pool.RemoveSession(s)
		if len(c.pool.AllSessions()) == 0 {
			// spec §4.4/§5: losing the last session drops the router into
			// Connecting and runs the reconnect sweep, not straight to
			// Disconnected; Disconnected is only the outcome of a sweep
			// that failed to reach any configured endpoint.
			c.reconnect()
			if c.State() != Connected {
				return nil, protocol.NewError(protocol.KindLostConnection, "Cluster is unavailable")
			}
		}

		metrics.IncFailovers()
		log.Debugf("session to %s lost, failing over", s.Endpoint())
	}
}

// chooseSession implements spec §4.3's "selecting a node" and §4.4's
// dispatch steps 1-2.
func (c *Client) chooseSession(hint *AffinityHint) (*session.Session, error) {
	if hint != nil && c.pool.PartitionAwarenessActive() {
		return c.chooseAffinitySession(*hint)
	}

	all := c.pool.AllSessions()
	if len(all) == 0 {
		return nil, protocol.NewError(protocol.KindLostConnection, "Cluster is unavailable")
	}
	// AllSessions ranges a map and has no stable order; sort so repeated
	// calls with no affinity hint keep landing on the same node instead of
	// scattering across the pool (spec §4.4 step 2).
	sort.Slice(all, func(i, j int) bool { return all[i].Endpoint() < all[j].Endpoint() })
	return all[0], nil
}

func (c *Client) chooseAffinitySession(hint AffinityHint) (*session.Session, error) {
	entry, found := c.dist.Lookup(hint.CacheId)
	if !found {
		if c.dist.BeginRefresh(hint.CacheId) {
			go c.refreshPartitions(hint.CacheId)
		}
		return c.pool.RandomSession()
	}

	keyHash, err := affinity.ResolveAffinityKey(c.codec, hint.Key, hint.KeyType, entry.KeyConfig)
	if err != nil {
		return nil, err
	}

	if nodeId, ok := entry.ResolveNode(keyHash); ok {
		if s, found := c.pool.Get(nodeId); found {
			return s, nil
		}
	}
	// I5: the mapped node may not be in the pool; fall back uniformly at
	// random over whatever is present (P3).
	return c.pool.RandomSession()
}

// refreshPartitions implements spec §4.3's refresh protocol: a
// non-blocking CACHE_PARTITIONS request sent without an affinity hint, so
// it lands on an arbitrary node. Failures are logged and dropped (spec
// §7); the next miss for this cache will simply try again.
func (c *Client) refreshPartitions(cacheId int32) {
	defer c.dist.EndRefresh(cacheId)

	value, err := c.Send(protocol.OpCachePartitions,
		func([]byte) ([]byte, error) {
			return affinity.EncodePartitionsRequest([]int32{cacheId}), nil
		},
		func(payload []byte) (interface{}, error) {
			return affinity.DecodePartitionsResponse(payload)
		},
		nil,
	)
	if err != nil {
		log.Debugf("cache partitions refresh for cache %d failed: %v", cacheId, err)
		return
	}

	resp, ok := value.(affinity.PartitionsResponse)
	if !ok {
		log.Warningf("cache partitions refresh for cache %d returned an unexpected type %T", cacheId, value)
		return
	}
	c.dist.ApplyRefresh(resp)
}

// Disconnect implements spec §4.4's Connected -> Disconnected transition:
// closes every session and moves the router to Disconnected. The affinity
// distribution map and its topology version are not cleared; a later
// Connect starts with them. Calling Disconnect when already Disconnected is
// a no-op.
func (c *Client) Disconnect() error {
	if c.State() == Disconnected {
		return nil
	}
	c.pool.Close()
	c.setState(Disconnected, nil)
	return nil
}
