package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adelhazem/social-gateway/pkg/logger"
)

// Session is the live binding between a user identity and one transport
// connection. Exactly one session per user is registered at a time.
type Session struct {
	ID          string
	UserID      string
	Conn        *websocket.Conn
	Send        chan []byte
	ConnectedAt time.Time

	mu        sync.RWMutex
	lastPong  time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewSession creates a new session for an admitted connection
func NewSession(id string, userID string, conn *websocket.Conn, sendBufferSize int) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:          id,
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		lastPong:    time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SendEvent enqueues a typed event for delivery to this session's transport.
// Delivery is best-effort: if the session is closed or its send buffer stays
// full, the event is dropped.
func (s *Session) SendEvent(eventType MessageType, data interface{}) error {
	event := ServerEvent{
		Type: eventType,
		Data: data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case s.Send <- payload:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-time.After(1 * time.Second):
		logger.Warn("Failed to send event, channel full",
			logger.String("session_id", s.ID),
			logger.String("user_id", s.UserID),
			logger.String("event_type", string(eventType)),
		)
		return nil // Drop event if channel is full
	}
}

// SendError sends an error message to the client
func (s *Session) SendError(code string, message string) error {
	event := ServerEvent{
		Type:    MessageTypeError,
		Code:    code,
		Message: message,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case s.Send <- payload:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		// Drop error message if channel is full
		return nil
	}
}

// UpdateLastPong records transport-level liveness
func (s *Session) UpdateLastPong() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPong = time.Now()
}

// LastPong returns the time of the last observed traffic
func (s *Session) LastPong() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPong
}

// Done returns a channel closed when the session is torn down
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close tears the session down. Safe to call more than once; an evicted
// session and its own disconnect path may both reach here. The Send channel
// is left open so a broadcast racing the teardown enqueues harmlessly
// instead of panicking; the write pump exits via Done.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.Conn != nil {
			s.Conn.Close()
		}
	})
}
