package gateway

import (
	"encoding/json"
	"testing"
)

func TestEventRouter_RouteToOnlineTarget(t *testing.T) {
	registry := NewSessionRegistry()
	router := NewEventRouter(registry)

	sess := newTestSession("sess-b", "b")
	registry.Register(sess)

	router.Route("b", MessageTypeTypingStart, ForwardedPayload{FromUserID: "a"})

	events := eventsOfType(drainEvents(t, sess), MessageTypeTypingStart)
	if len(events) != 1 {
		t.Fatalf("Expected 1 typing_start event, got %d", len(events))
	}

	var payload ForwardedPayload
	if err := json.Unmarshal(events[0].Data, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if payload.FromUserID != "a" {
		t.Errorf("Expected fromUserId a, got %s", payload.FromUserID)
	}
}

func TestEventRouter_RouteToOfflineIsSilent(t *testing.T) {
	registry := NewSessionRegistry()
	router := NewEventRouter(registry)

	sender := newTestSession("sess-a", "a")
	registry.Register(sender)

	// No session for the target: completes without panic and without any
	// observable side effect
	router.Route("offline-user", MessageTypeTypingStart, ForwardedPayload{FromUserID: "a"})

	if events := drainEvents(t, sender); len(events) != 0 {
		t.Errorf("Expected no events anywhere, sender got %d", len(events))
	}
	if _, exists := registry.Lookup("offline-user"); exists {
		t.Error("Expected no registry mutation for offline target")
	}

	// The sender's own session remains fully functional
	router.Route("a", MessageTypeReaction, ForwardedPayload{FromUserID: "b"})
	if events := eventsOfType(drainEvents(t, sender), MessageTypeReaction); len(events) != 1 {
		t.Error("Expected the sender's session to still receive events")
	}
}

func TestEventRouter_CallSignalResolvesUserFirst(t *testing.T) {
	registry := NewSessionRegistry()
	router := NewEventRouter(registry)

	sess := newTestSession("sess-b", "b")
	registry.Register(sess)

	router.RouteCallSignal("b", MessageTypeCallOffer, ForwardedPayload{FromUserID: "a"})

	if events := eventsOfType(drainEvents(t, sess), MessageTypeCallOffer); len(events) != 1 {
		t.Fatalf("Expected 1 call_offer via user id, got %d", len(events))
	}
}

func TestEventRouter_CallSignalFallsBackToSessionID(t *testing.T) {
	registry := NewSessionRegistry()
	router := NewEventRouter(registry)

	sess := newTestSession("sess-b", "b")
	registry.Register(sess)

	// The caller referenced the transport handle directly
	router.RouteCallSignal("sess-b", MessageTypeCallEnd, ForwardedPayload{FromUserID: "a"})

	if events := eventsOfType(drainEvents(t, sess), MessageTypeCallEnd); len(events) != 1 {
		t.Fatalf("Expected 1 call_end via session id fallback, got %d", len(events))
	}

	// Unresolvable either way: silent drop
	router.RouteCallSignal("nope", MessageTypeCallEnd, ForwardedPayload{FromUserID: "a"})
	if events := drainEvents(t, sess); len(events) != 0 {
		t.Errorf("Expected no events for unresolvable target, got %d", len(events))
	}
}

func TestEventRouter_RouteReportsOutcome(t *testing.T) {
	registry := NewSessionRegistry()
	router := NewEventRouter(registry)

	sess := newTestSession("sess-b", "b")
	registry.Register(sess)

	if !router.Route("b", MessageTypeReaction, ForwardedPayload{FromUserID: "a"}) {
		t.Error("Expected routing to an online target to report success")
	}
	if router.Route("offline-user", MessageTypeReaction, ForwardedPayload{FromUserID: "a"}) {
		t.Error("Expected routing to an offline target to report failure")
	}
	if router.RouteCallSignal("nope", MessageTypeCallEnd, ForwardedPayload{FromUserID: "a"}) {
		t.Error("Expected an unresolvable call signal to report failure")
	}
}

func TestEventRouter_NotifyDeliveredSkipsOfflineSenders(t *testing.T) {
	registry := NewSessionRegistry()
	router := NewEventRouter(registry)

	sessX := newTestSession("sess-x", "x")
	registry.Register(sessX)

	// y is offline: its receipt is dropped and must not inflate the count
	notified := router.NotifyDelivered([]string{"x", "y"}, "a")
	if notified != 1 {
		t.Errorf("Expected 1 notification with one sender offline, got %d", notified)
	}

	events := eventsOfType(drainEvents(t, sessX), MessageTypeMessageDelivered)
	if len(events) != 1 {
		t.Fatalf("Expected 1 message_delivered for x, got %d", len(events))
	}
}

func TestEventRouter_NotifyDeliveredDeduplicatesSenders(t *testing.T) {
	registry := NewSessionRegistry()
	router := NewEventRouter(registry)

	sessX := newTestSession("sess-x", "x")
	sessY := newTestSession("sess-y", "y")
	registry.Register(sessX)
	registry.Register(sessY)

	// Two deliveries from x, one from y: one event per distinct sender
	notified := router.NotifyDelivered([]string{"x", "x", "y"}, "a")
	if notified != 2 {
		t.Errorf("Expected 2 notifications, got %d", notified)
	}

	for _, sess := range []*Session{sessX, sessY} {
		events := eventsOfType(drainEvents(t, sess), MessageTypeMessageDelivered)
		if len(events) != 1 {
			t.Fatalf("Expected exactly 1 message_delivered for %s, got %d", sess.UserID, len(events))
		}
		var payload DeliveredPayload
		if err := json.Unmarshal(events[0].Data, &payload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}
		if payload.ToUserID != "a" {
			t.Errorf("Expected toUserId a, got %s", payload.ToUserID)
		}
	}
}
