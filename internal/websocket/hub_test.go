package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with an outbox but no real connection.
func mockClient(hub *Hub, householdID int64) *Client {
	return &Client{
		hub:         hub,
		conn:        nil,
		householdID: householdID,
		outbox:      make(chan []byte, outboxSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(1); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(1); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastStaysInHousehold(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	neighbor := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(neighbor)

	msg := NewMessage("assignment", "approved", 42, map[string]any{"task_id": float64(7)})
	hub.Broadcast(1, msg)

	// Both household 1 clients receive the message
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.outbox:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "assignment_approved" {
				t.Errorf("expected type assignment_approved, got %s", got.Type)
			}
			if got.ID != 42 {
				t.Errorf("expected id 42, got %d", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	// The neighbor household hears nothing
	select {
	case data := <-neighbor.outbox:
		t.Fatalf("message leaked across households: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastSkipsFullClient(t *testing.T) {
	hub := NewHub(slog.Default())

	slow := mockClient(hub, 1)
	hub.Register(slow)

	// Fill the buffer; further broadcasts must not block.
	for i := 0; i < outboxSize+5; i++ {
		hub.Broadcast(1, NewMessage("assignment", "completed", int64(i), nil))
	}

	if got := len(slow.outbox); got != outboxSize {
		t.Fatalf("expected a full buffer of %d, got %d", outboxSize, got)
	}
}

func TestConcurrentBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(1, NewMessage("task", "updated", int64(i), nil))
		}()
	}
	go func() {
		for range c.outbox {
		}
	}()
	wg.Wait()
	hub.Unregister(c)
}
