package gateway

import (
	"sync"

	"github.com/adelhazem/social-gateway/pkg/logger"
)

// RoomRegistry tracks which sessions have joined which group channels.
// Membership is session-scoped and driven entirely by explicit join/leave
// messages from the client, independent of the session registry.
type RoomRegistry struct {
	rooms map[string]map[string]*Session // group_id -> session_id -> session
	mu    sync.RWMutex
}

// NewRoomRegistry creates an empty room registry
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]map[string]*Session),
	}
}

// Join adds the session to the group's channel
func (r *RoomRegistry) Join(groupID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[groupID] == nil {
		r.rooms[groupID] = make(map[string]*Session)
	}
	r.rooms[groupID][sess.ID] = sess
}

// Leave removes the session from the group's channel
func (r *RoomRegistry) Leave(groupID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, exists := r.rooms[groupID]; exists {
		delete(members, sess.ID)
		if len(members) == 0 {
			delete(r.rooms, groupID)
		}
	}
}

// LeaveAll removes the session from every channel it joined; called at
// session teardown
func (r *RoomRegistry) LeaveAll(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for groupID, members := range r.rooms {
		delete(members, sess.ID)
		if len(members) == 0 {
			delete(r.rooms, groupID)
		}
	}
}

// Members returns a snapshot of the sessions in a group's channel
func (r *RoomRegistry) Members(groupID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[groupID]
	if !exists {
		return nil
	}

	sessions := make([]*Session, 0, len(members))
	for _, sess := range members {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Broadcast fans an event out to the group's channel, skipping the
// originating session. Returns the number of sessions the event was
// enqueued for.
func (r *RoomRegistry) Broadcast(groupID string, eventType MessageType, payload interface{}, exceptSessionID string) int {
	members := r.Members(groupID)
	sent := 0

	for _, sess := range members {
		if sess.ID == exceptSessionID {
			continue
		}
		if err := sess.SendEvent(eventType, payload); err != nil {
			logger.Debug("Failed to fan out group event",
				logger.ErrorField(err),
				logger.String("group_id", groupID),
				logger.String("session_id", sess.ID),
			)
			continue
		}
		sent++
	}

	if sent > 0 {
		groupFanout.Observe(float64(sent))
	}
	return sent
}

// Count returns the number of active group channels
func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
