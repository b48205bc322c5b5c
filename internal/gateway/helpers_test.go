package gateway

import (
	"encoding/json"
	"testing"
)

// testEvent mirrors ServerEvent with raw data for assertions
type testEvent struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// drainEvents reads every event currently queued on the session's transport
// buffer. Event production in these tests is synchronous, so a non-blocking
// drain observes everything.
func drainEvents(t *testing.T, sess *Session) []testEvent {
	t.Helper()

	var events []testEvent
	for {
		select {
		case raw := <-sess.Send:
			var ev testEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("Failed to decode event: %v", err)
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

// eventsOfType filters drained events by type
func eventsOfType(events []testEvent, eventType MessageType) []testEvent {
	var matched []testEvent
	for _, ev := range events {
		if ev.Type == string(eventType) {
			matched = append(matched, ev)
		}
	}
	return matched
}

// lastPresenceList returns the online list from the most recent
// presence_update queued for the session
func lastPresenceList(t *testing.T, sess *Session) []string {
	t.Helper()

	updates := eventsOfType(drainEvents(t, sess), MessageTypePresenceUpdate)
	if len(updates) == 0 {
		t.Fatal("Expected at least one presence_update")
	}

	var payload PresencePayload
	if err := json.Unmarshal(updates[len(updates)-1].Data, &payload); err != nil {
		t.Fatalf("Failed to decode presence payload: %v", err)
	}
	return payload.OnlineUserIDs
}
