package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adelhazem/social-gateway/internal/config"
	"github.com/adelhazem/social-gateway/internal/storage"
	"github.com/adelhazem/social-gateway/pkg/logger"
)

// Hub owns the session lifecycle: admission hands it an identified
// transport, and it drives the connect sequence (register, reconcile
// pending deliveries, broadcast), runtime event dispatch, and teardown.
type Hub struct {
	config      config.GatewayConfig
	registry    *SessionRegistry
	rooms       *RoomRegistry
	visibility  *VisibilityState
	broadcaster *PresenceBroadcaster
	router      *EventRouter
	store       storage.UserStore

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool

	statsMu sync.RWMutex
	stats   HubStats
}

// HubStats is a plain value snapshot of hub statistics, safe to copy and
// encode. The hub guards its live copy with its own lock.
type HubStats struct {
	SessionsTotal     int64     `json:"sessions_total"`
	SessionsActive    int64     `json:"sessions_active"`
	SessionsEvicted   int64     `json:"sessions_evicted"`
	ReceiptsSent      int64     `json:"receipts_sent"`
	LastBroadcastTime time.Time `json:"last_broadcast_time"`
}

// NewHub creates a new gateway hub over the given user store
func NewHub(cfg config.GatewayConfig, store storage.UserStore) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	registry := NewSessionRegistry()
	visibility := NewVisibilityState()

	return &Hub{
		config:      cfg,
		registry:    registry,
		rooms:       NewRoomRegistry(),
		visibility:  visibility,
		broadcaster: NewPresenceBroadcaster(registry, visibility, store),
		router:      NewEventRouter(registry),
		store:       store,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Registry exposes the session registry (read-side, for stats and routing)
func (h *Hub) Registry() *SessionRegistry {
	return h.registry
}

// Start starts the hub's background liveness monitor
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	logger.Info("Starting gateway hub",
		logger.Duration("idle_timeout", h.config.IdleTimeout),
		logger.Duration("ping_interval", h.config.PingInterval),
	)

	h.wg.Add(1)
	go h.monitorSessions()

	return nil
}

// Stop stops the hub and tears down all sessions
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	logger.Info("Stopping gateway hub")
	h.cancel()
	for _, sess := range h.registry.Sessions() {
		h.Unregister(sess)
	}
	h.wg.Wait()
	logger.Info("Gateway hub stopped")
}

// Register admits a session into the hub: the connect sequence runs first,
// then the transport pumps start
func (h *Hub) Register(sess *Session) {
	h.Connect(sess)

	h.wg.Add(2)
	go h.writePump(sess)
	go h.readPump(sess)
}

// Connect runs the connect sequence for an admitted session: register in
// the registry (replacing any prior session for the same user), seed the
// runtime ghost-mode flag from the persisted preference, reconcile pending
// delivery receipts, then broadcast presence.
func (h *Hub) Connect(sess *Session) {
	evicted := h.registry.Register(sess)
	if evicted != nil {
		logger.Info("Replacing existing session for user",
			logger.String("user_id", sess.UserID),
			logger.String("old_session_id", evicted.ID),
			logger.String("new_session_id", sess.ID),
		)
		h.rooms.LeaveAll(evicted)
		evicted.Close()
		sessionsEvicted.Inc()
		h.incrementEvicted()
	}

	sessionsTotal.Inc()
	sessionsActive.Set(float64(h.registry.Count()))
	h.incrementSessions()

	logger.Info("Session registered",
		logger.String("session_id", sess.ID),
		logger.String("user_id", sess.UserID),
		logger.Int("total_sessions", h.registry.Count()),
	)

	// Seed runtime visibility from the persisted preference; on failure the
	// user defaults to visible until they toggle
	hidden, err := h.store.GetGhostModePreference(h.ctx, sess.UserID)
	if err != nil {
		logger.Warn("Failed to load ghost mode preference",
			logger.ErrorField(err),
			logger.String("user_id", sess.UserID),
		)
	} else {
		h.visibility.Set(sess.UserID, hidden)
	}

	h.reconcileDeliveries(sess)
	h.broadcaster.BroadcastAll(h.ctx)
	h.recordBroadcast()
}

// reconcileDeliveries flips the delivered flag on messages that were waiting
// for this user and notifies each distinct sender once. The store only
// reports senders whose messages actually transitioned, so a reconnect with
// nothing pending notifies nobody.
func (h *Hub) reconcileDeliveries(sess *Session) {
	senders, err := h.store.MarkMessagesDelivered(h.ctx, sess.UserID)
	if err != nil {
		logger.Error("Failed to reconcile pending deliveries",
			logger.ErrorField(err),
			logger.String("user_id", sess.UserID),
		)
		return
	}
	if len(senders) == 0 {
		return
	}

	notified := h.router.NotifyDelivered(senders, sess.UserID)
	h.addReceipts(int64(notified))

	logger.Debug("Delivery receipts reconciled",
		logger.String("receiver_id", sess.UserID),
		logger.Strings("senders", senders),
	)
}

// Unregister runs the disconnect sequence. Idempotent: a session evicted by
// a newer registration, or already unregistered by a racing pump, skips the
// teardown side effects.
func (h *Hub) Unregister(sess *Session) {
	if !h.registry.Unregister(sess) {
		sess.Close()
		return
	}

	// A failed last-seen write never blocks deregistration. The write runs
	// on its own context so hub shutdown does not cancel it mid-flight.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.UpdateLastSeen(ctx, sess.UserID, time.Now()); err != nil {
		logger.Warn("Failed to persist last seen",
			logger.ErrorField(err),
			logger.String("user_id", sess.UserID),
		)
	}

	h.rooms.LeaveAll(sess)
	h.visibility.Forget(sess.UserID)
	sess.Close()

	sessionsActive.Set(float64(h.registry.Count()))
	h.decrementSessions()

	logger.Info("Session unregistered",
		logger.String("session_id", sess.ID),
		logger.String("user_id", sess.UserID),
		logger.Int("total_sessions", h.registry.Count()),
	)

	h.broadcaster.BroadcastAll(h.ctx)
	h.recordBroadcast()
}

// writePump pumps queued events to the transport and keeps it alive with pings
func (h *Hub) writePump(sess *Session) {
	defer h.wg.Done()
	defer h.Unregister(sess)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-sess.Done():
			sess.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			sess.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-sess.Send:
			sess.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			w, err := sess.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current frame
			n := len(sess.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-sess.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			sess.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sess.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the transport into the dispatcher
func (h *Hub) readPump(sess *Session) {
	defer h.wg.Done()
	defer h.Unregister(sess)

	sess.Conn.SetReadDeadline(time.Now().Add(h.config.IdleTimeout))
	sess.Conn.SetPongHandler(func(string) error {
		sess.UpdateLastPong()
		sess.Conn.SetReadDeadline(time.Now().Add(h.config.IdleTimeout))
		return nil
	})

	for {
		_, message, err := sess.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("session_id", sess.ID),
				)
			}
			break
		}

		sess.UpdateLastPong()
		sess.Conn.SetReadDeadline(time.Now().Add(h.config.IdleTimeout))

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			sess.SendError("invalid_message", "failed to parse message")
			continue
		}

		// A failure handling one message never tears down the session loop
		if err := h.handleClientMessage(sess, &clientMsg); err != nil {
			logger.Debug("Failed to handle client message",
				logger.ErrorField(err),
				logger.String("session_id", sess.ID),
				logger.String("type", clientMsg.Type),
			)
		}
	}
}

// monitorSessions evicts sessions that produced no traffic within the idle
// timeout, running them through the normal disconnect sequence
func (h *Hub) monitorSessions() {
	defer h.wg.Done()

	interval := h.config.IdleTimeout / 4
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			for _, sess := range h.registry.Sessions() {
				idle := now.Sub(sess.LastPong())
				if idle > h.config.IdleTimeout {
					logger.Info("Disconnecting idle session",
						logger.String("session_id", sess.ID),
						logger.String("user_id", sess.UserID),
						logger.Duration("idle_time", idle),
					)
					h.Unregister(sess)
				}
			}
		}
	}
}

// GetStats returns a snapshot of the hub statistics
func (h *Hub) GetStats() HubStats {
	h.statsMu.RLock()
	defer h.statsMu.RUnlock()

	snapshot := h.stats
	snapshot.SessionsActive = int64(h.registry.Count())
	return snapshot
}

func (h *Hub) incrementSessions() {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	h.stats.SessionsTotal++
	h.stats.SessionsActive++
}

func (h *Hub) decrementSessions() {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	if h.stats.SessionsActive > 0 {
		h.stats.SessionsActive--
	}
}

func (h *Hub) incrementEvicted() {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	h.stats.SessionsEvicted++
}

func (h *Hub) addReceipts(n int64) {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	h.stats.ReceiptsSent += n
}

func (h *Hub) recordBroadcast() {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	h.stats.LastBroadcastTime = time.Now()
}
