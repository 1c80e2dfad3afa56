package pool

import (
	"sync"
	"sync/atomic"
	"time"

	gometrics "github.com/rcrowley/go-metrics"

	"github.com/latticegrid/gridclient/metrics"
	"github.com/latticegrid/gridclient/session"
)

// connector is spec §4.2's background connector: it snapshots the
// inactive-endpoint list, tries each one in turn, and calls addSession on
// success, dropping failures silently (spec §7's propagation policy).
//
// Repeated failures against the same endpoint back off using an
// exponentially-weighted moving average of its recent failure rate
// (rcrowley/go-metrics.EWMA) rather than a fixed delay, so a briefly
// flapping node is retried quickly once it settles down, and a node that
// has been down for a while is not hammered every sweep. Spec §9 flags
// unbounded backoff as an open question the source leaves unresolved; this
// implementation clamps the computed delay to [minBackoff, maxBackoff].
type connector struct {
	pool        *Pool
	dial        func(endpoint string) (*session.Session, error)
	isConnected func() bool

	running atomic.Bool

	backoffMu sync.Mutex
	backoff   map[string]gometrics.EWMA
	nextTry   map[string]time.Time
}

const (
	minBackoff = 100 * time.Millisecond
	maxBackoff = 30 * time.Second

	// ewmaTickInterval is the sampling window the EWMA decays failures
	// over; matched to gometrics.NewEWMA1's 1-minute-load-average shape
	// but ticked manually since the connector is not sampled by a ticker.
	ewmaTickInterval = 5 * time.Second
)

func newConnector(pool *Pool, dial func(endpoint string) (*session.Session, error), isConnected func() bool) *connector {
	return &connector{
		pool:        pool,
		dial:        dial,
		isConnected: isConnected,
		backoff:     make(map[string]gometrics.EWMA),
		nextTry:     make(map[string]time.Time),
	}
}

// run starts a sweep if one is not already in flight. At most one sweep
// runs at a time, per spec §4.2.
func (c *connector) run() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.running.Store(false)
		c.sweep()
	}()
}

// awaitIdle blocks until no sweep is in flight. Used by reconnect (spec
// §5) so it never re-populates the inactive list out from under a sweep
// that is still running against the old one.
func (c *connector) awaitIdle() {
	for c.running.Load() {
		time.Sleep(5 * time.Millisecond)
	}
}

func (c *connector) sweep() {
	for _, endpoint := range c.pool.snapshotInactive() {
		if !c.isConnected() {
			return
		}
		if !c.readyToTry(endpoint) {
			continue
		}

		metrics.IncBackgroundConnectAttempt()
		s, err := c.dial(endpoint)
		if err != nil {
			c.recordFailure(endpoint)
			log.Debugf("background connect to %s failed: %v", endpoint, err)
			continue
		}

		if !c.isConnected() {
			s.Disconnect()
			return
		}

		c.recordSuccess(endpoint)
		c.pool.AddSession(s)
	}
}

func (c *connector) readyToTry(endpoint string) bool {
	c.backoffMu.Lock()
	defer c.backoffMu.Unlock()
	until, scheduled := c.nextTry[endpoint]
	return !scheduled || !time.Now().Before(until)
}

func (c *connector) recordFailure(endpoint string) {
	c.backoffMu.Lock()
	defer c.backoffMu.Unlock()

	ewma, ok := c.backoff[endpoint]
	if !ok {
		ewma = gometrics.NewEWMA1()
		c.backoff[endpoint] = ewma
	}
	ewma.Update(1)
	ewma.Tick()

	delay := time.Duration(ewma.Rate()*float64(ewmaTickInterval)) + minBackoff
	if delay > maxBackoff {
		delay = maxBackoff
	}
	c.nextTry[endpoint] = time.Now().Add(delay)
}

func (c *connector) recordSuccess(endpoint string) {
	c.backoffMu.Lock()
	defer c.backoffMu.Unlock()
	delete(c.backoff, endpoint)
	delete(c.nextTry, endpoint)
}
