package gateway

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSession_SendEventEnqueues(t *testing.T) {
	sess := newTestSession("sess-1", "user-1")

	if err := sess.SendEvent(MessageTypePong, nil); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}

	select {
	case raw := <-sess.Send:
		var ev ServerEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		if ev.Type != MessageTypePong {
			t.Errorf("Expected pong, got %s", ev.Type)
		}
	default:
		t.Fatal("Expected an event on the send channel")
	}
}

func TestSession_SendEventDropsWhenFull(t *testing.T) {
	sess := NewSession("sess-1", "user-1", nil, 1)

	if err := sess.SendEvent(MessageTypePong, nil); err != nil {
		t.Fatalf("Failed to send first event: %v", err)
	}

	// Buffer full and nobody draining: the event is dropped, not an error
	start := time.Now()
	if err := sess.SendEvent(MessageTypePong, nil); err != nil {
		t.Fatalf("Expected drop, got error: %v", err)
	}
	if time.Since(start) < time.Second {
		t.Error("Expected the send to wait out the full-buffer window")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	sess := newTestSession("sess-1", "user-1")

	sess.Close()
	sess.Close() // must not panic

	select {
	case <-sess.Done():
	default:
		t.Error("Expected Done to be closed after Close")
	}
}

func TestSession_UpdateLastPong(t *testing.T) {
	sess := newTestSession("sess-1", "user-1")

	before := sess.LastPong()
	time.Sleep(10 * time.Millisecond)
	sess.UpdateLastPong()

	if !sess.LastPong().After(before) {
		t.Error("Expected last pong to advance")
	}
}
