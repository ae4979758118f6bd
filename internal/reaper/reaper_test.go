package reaper

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/tanmaysharma2001/textconf/internal/registry"
)

func TestSweepEvictsOnlyIdleClients(t *testing.T) {
	regs := registry.New(10, 10)
	c1, _ := net.Pipe()
	c2, _ := net.Pipe()

	regs.Lock()
	regs.Register(c1, "alice", "addr1")
	regs.Register(c2, "bob", "addr2")
	regs.Unlock()

	r := New(regs, time.Millisecond, 50*time.Millisecond)
	fixedNow := time.Now()
	r.now = func() time.Time { return fixedNow }

	regs.Lock()
	alice, _ := regs.FindByID("alice")
	alice.LastActivity = fixedNow.Add(-time.Minute)
	bob, _ := regs.FindByID("bob")
	bob.LastActivity = fixedNow
	regs.Unlock()

	r.sweep()

	regs.Lock()
	_, aliceStillActive := regs.FindByID("alice")
	_, bobStillActive := regs.FindByID("bob")
	regs.Unlock()

	if aliceStillActive {
		t.Fatal("expected idle client alice to be evicted")
	}
	if !bobStillActive {
		t.Fatal("expected active client bob to remain")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	regs := registry.New(10, 10)
	r := New(regs, time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after context cancel")
	}
}
