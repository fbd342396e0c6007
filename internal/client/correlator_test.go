package client

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/handwave/relay/internal/protocol"
)

func TestCorrelator_ResolveDeliversResponse(t *testing.T) {
	c := NewCorrelator(time.Hour)

	id, ch := c.Issue()
	if c.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", c.Pending())
	}

	if !c.Resolve(protocol.NewResponse(id, "world")) {
		t.Fatal("Resolve found no waiter")
	}

	select {
	case out := <-ch:
		if out.err != nil {
			t.Fatalf("outcome error = %v, want nil", out.err)
		}
		if out.resp.Response != "world" {
			t.Errorf("Response = %q, want %q", out.resp.Response, "world")
		}
		if out.resp.RequestID != id {
			t.Errorf("RequestID = %q, want %q", out.resp.RequestID, id)
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}

	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}
}

func TestCorrelator_UnmatchedResponseDiscarded(t *testing.T) {
	c := NewCorrelator(time.Hour)

	if c.Resolve(protocol.NewResponse("never-issued", "hi")) {
		t.Error("Resolve matched a waiter that was never issued")
	}
}

func TestCorrelator_TimeoutFires(t *testing.T) {
	c := NewCorrelator(30 * time.Millisecond)

	_, ch := c.Issue()

	select {
	case out := <-ch:
		if !errors.Is(out.err, ErrTimeout) {
			t.Errorf("outcome error = %v, want ErrTimeout", out.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never fired")
	}

	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}
}

func TestCorrelator_ResponseBeatsTimeout(t *testing.T) {
	c := NewCorrelator(50 * time.Millisecond)

	id, ch := c.Issue()
	c.Resolve(protocol.NewResponse(id, "fast"))

	out := <-ch
	if out.err != nil {
		t.Fatalf("outcome error = %v, want nil", out.err)
	}

	// The timer deadline passes; the waiter must not receive a second
	// outcome.
	time.Sleep(100 * time.Millisecond)
	select {
	case extra := <-ch:
		t.Fatalf("second outcome delivered: %+v", extra)
	default:
	}
}

func TestCorrelator_ResolutionIsSingleWinner(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := NewCorrelator(time.Hour)
		id, ch := c.Issue()

		var wg sync.WaitGroup
		var resolved, cancelled bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			resolved = c.Resolve(protocol.NewResponse(id, "ok"))
		}()
		go func() {
			defer wg.Done()
			cancelled = c.Cancel(id, ErrTimeout)
		}()
		wg.Wait()

		if resolved == cancelled {
			t.Fatalf("resolved = %v, cancelled = %v, want exactly one winner", resolved, cancelled)
		}

		// Exactly one outcome on the channel.
		<-ch
		select {
		case extra := <-ch:
			t.Fatalf("second outcome delivered: %+v", extra)
		default:
		}
	}
}

func TestCorrelator_FailAll(t *testing.T) {
	c := NewCorrelator(time.Hour)

	var chans []<-chan outcome
	for i := 0; i < 3; i++ {
		_, ch := c.Issue()
		chans = append(chans, ch)
	}

	if got := c.FailAll(ErrConnectionLost); got != 3 {
		t.Errorf("FailAll = %d, want 3", got)
	}

	for i, ch := range chans {
		select {
		case out := <-ch:
			if !errors.Is(out.err, ErrConnectionLost) {
				t.Errorf("waiter %d error = %v, want ErrConnectionLost", i, out.err)
			}
		case <-time.After(time.Second):
			t.Fatalf("waiter %d never failed", i)
		}
	}

	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}
}

func TestCorrelator_IssueGeneratesUniqueIDs(t *testing.T) {
	c := NewCorrelator(time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _ := c.Issue()
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
