package pool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/latticegrid/gridclient/protocol"
	"github.com/latticegrid/gridclient/session"
)

func TestBackgroundConnectorFillsInactiveEndpoints(t *testing.T) {
	var dialed int32

	p := New(func(endpoint string) (*session.Session, error) {
		atomic.AddInt32(&dialed, 1)
		return nil, protocol.NewError(protocol.KindConnectionFailed, "no real server in this test")
	}, true, func() bool { return true })

	p.MarkInactive("127.0.0.1:19001")
	p.MarkInactive("127.0.0.1:19002")

	p.RunBackgroundConnect()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&dialed) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := atomic.LoadInt32(&dialed); got < 2 {
		t.Fatalf("expected the connector to attempt both inactive endpoints, dialed %d times", got)
	}
}

func TestBackgroundConnectorStopsOnceDisconnected(t *testing.T) {
	var dialed int32
	connected := int32(1)

	p := New(func(endpoint string) (*session.Session, error) {
		atomic.AddInt32(&dialed, 1)
		return nil, protocol.NewError(protocol.KindConnectionFailed, "unreachable")
	}, true, func() bool { return atomic.LoadInt32(&connected) == 1 })

	p.MarkInactive("127.0.0.1:19003")
	atomic.StoreInt32(&connected, 0)

	p.RunBackgroundConnect()

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&dialed); got != 0 {
		t.Fatalf("expected connector to exit before dialing once isConnected is false, dialed %d times", got)
	}
}

func TestAwaitBackgroundConnectIdleBlocksUntilSweepFinishes(t *testing.T) {
	block := make(chan struct{})
	var dialed int32

	p := New(func(endpoint string) (*session.Session, error) {
		atomic.AddInt32(&dialed, 1)
		<-block
		return nil, protocol.NewError(protocol.KindConnectionFailed, "unreachable")
	}, true, func() bool { return true })

	p.MarkInactive("127.0.0.1:19004")
	p.RunBackgroundConnect()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&dialed) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&dialed) == 0 {
		t.Fatal("expected the sweep to start dialing before the test unblocks it")
	}

	idleReturned := make(chan struct{})
	go func() {
		p.AwaitBackgroundConnectIdle()
		close(idleReturned)
	}()

	select {
	case <-idleReturned:
		t.Fatal("AwaitBackgroundConnectIdle returned before the in-flight sweep finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)

	select {
	case <-idleReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitBackgroundConnectIdle did not return after the sweep finished")
	}
}

func TestRecordFailureBacksOffBeforeRetrying(t *testing.T) {
	c := newConnector(nil, nil, func() bool { return true })

	if !c.readyToTry("10.0.0.1:10800") {
		t.Fatalf("an endpoint with no recorded failures must be immediately eligible")
	}

	c.recordFailure("10.0.0.1:10800")
	if c.readyToTry("10.0.0.1:10800") {
		t.Fatalf("an endpoint must back off immediately after a recorded failure")
	}

	c.recordSuccess("10.0.0.1:10800")
	if !c.readyToTry("10.0.0.1:10800") {
		t.Fatalf("a recorded success must clear the backoff")
	}
}
