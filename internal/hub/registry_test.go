package hub

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(8, nil)

	c := r.Register(nil)
	if c.ID == "" {
		t.Fatal("registered client has no id")
	}

	got, ok := r.Get(c.ID)
	if !ok || got != c {
		t.Fatalf("Get(%q) = %v, %v", c.ID, got, ok)
	}
	if r.Size() != 1 {
		t.Errorf("Size = %d, want 1", r.Size())
	}
}

func TestRegistrySendEnqueues(t *testing.T) {
	r := NewRegistry(8, nil)
	c := r.Register(nil)

	if !r.Send(c.ID, []byte(`{"type":"x"}`)) {
		t.Fatal("Send returned false for a live client")
	}

	select {
	case got := <-c.send:
		if string(got) != `{"type":"x"}` {
			t.Errorf("queued frame = %s", got)
		}
	default:
		t.Fatal("nothing queued")
	}

	if r.Send("no-such-id", []byte("x")) {
		t.Error("Send to an unknown id must return false")
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry(8, nil)

	var removals int
	r.SetRemoveHandler(func(c *Client, code int, reason string) {
		removals++
	})

	c := r.Register(nil)

	r.Remove(c.ID, websocket.CloseNormalClosure, "bye")
	r.Remove(c.ID, websocket.CloseNormalClosure, "bye again")

	if removals != 1 {
		t.Errorf("remove handler ran %d times, want 1", removals)
	}
	if _, ok := r.Get(c.ID); ok {
		t.Error("removed client still reachable")
	}
	if c.State() != StateClosed {
		t.Errorf("state = %v, want closed", c.State())
	}
	if r.Size() != 0 {
		t.Errorf("Size = %d, want 0", r.Size())
	}
}

func TestRegistryRemoveReentrant(t *testing.T) {
	r := NewRegistry(8, nil)

	var removals int
	r.SetRemoveHandler(func(c *Client, code int, reason string) {
		removals++
		// A cascade that tries to remove the same client again must not
		// recurse into a second cascade.
		r.Remove(c.ID, websocket.CloseNormalClosure, "cascade")
	})

	c := r.Register(nil)
	r.Remove(c.ID, websocket.CloseGoingAway, "heartbeat timeout")

	if removals != 1 {
		t.Errorf("remove handler ran %d times, want 1", removals)
	}
}

func TestRegistrySendOverflowRemovesClient(t *testing.T) {
	r := NewRegistry(1, nil)

	var removed []string
	r.SetRemoveHandler(func(c *Client, code int, reason string) {
		removed = append(removed, reason)
	})

	c := r.Register(nil)

	// Nothing drains the queue, so the second send overflows.
	if !r.Send(c.ID, []byte("a")) {
		t.Fatal("first send failed")
	}
	if r.Send(c.ID, []byte("b")) {
		t.Fatal("overflowing send reported success")
	}

	if len(removed) != 1 || removed[0] != "send queue overflow" {
		t.Errorf("removals = %v, want one overflow removal", removed)
	}
	if _, ok := r.Get(c.ID); ok {
		t.Error("overflowed client still registered")
	}
}

func TestRegistrySendToClosedClient(t *testing.T) {
	r := NewRegistry(8, nil)
	c := r.Register(nil)
	r.Remove(c.ID, websocket.CloseNormalClosure, "bye")

	if r.Send(c.ID, []byte("x")) {
		t.Error("Send to a removed client must return false")
	}
}

func TestRegistryEachSnapshot(t *testing.T) {
	r := NewRegistry(8, nil)
	c1 := r.Register(nil)
	c2 := r.Register(nil)

	seen := map[string]bool{}
	r.Each(func(c *Client) {
		seen[c.ID] = true
		// Removal inside the walk must not deadlock.
		r.Remove(c.ID, websocket.CloseNormalClosure, "walk")
	})

	if !seen[c1.ID] || !seen[c2.ID] {
		t.Errorf("Each visited %v, want both clients", seen)
	}
	if r.Size() != 0 {
		t.Errorf("Size = %d, want 0", r.Size())
	}
}
