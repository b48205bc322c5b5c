package gateway

import (
	"context"

	"github.com/adelhazem/social-gateway/internal/storage"
	"github.com/adelhazem/social-gateway/pkg/logger"
)

// PresenceBroadcaster recomputes and pushes a personalized online list to
// every connected session. Runs on every register, unregister, and ghost
// mode toggle; there is no debouncing.
type PresenceBroadcaster struct {
	registry   *SessionRegistry
	visibility *VisibilityState
	store      storage.UserStore
}

// NewPresenceBroadcaster creates a presence broadcaster
func NewPresenceBroadcaster(registry *SessionRegistry, visibility *VisibilityState, store storage.UserStore) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		registry:   registry,
		visibility: visibility,
		store:      store,
	}
}

// BroadcastAll pushes a freshly computed presence list to each live session.
// Each viewer's list is personalized from the same authoritative snapshot,
// so a hidden or blocking user is never leaked, even transiently. A failed
// privacy fetch aborts this cycle only; the next trigger retries naturally.
func (b *PresenceBroadcaster) BroadcastAll(ctx context.Context) {
	sessions := b.registry.Sessions()
	if len(sessions) == 0 {
		broadcastsTotal.WithLabelValues("empty").Inc()
		return
	}

	activeIDs := b.registry.ActiveUserIDs()

	// Single batched read for every candidate in this cycle
	privacy, err := b.store.FindUserPrivacyFields(ctx, activeIDs)
	if err != nil {
		logger.Error("Failed to fetch privacy snapshot, skipping broadcast cycle",
			logger.ErrorField(err),
			logger.Int("active_users", len(activeIDs)),
		)
		broadcastsTotal.WithLabelValues("error").Inc()
		return
	}

	snapshots := make(map[string]PrivacySnapshot, len(activeIDs))
	for _, p := range privacy {
		snapshots[p.UserID] = SnapshotFromPrivacy(p)
	}

	// Runtime ghost-mode toggles override the persisted flag, including for
	// users the store returned no record for
	for _, id := range activeIDs {
		if b.visibility.Hidden(id) {
			snap := snapshots[id]
			snap.Hidden = true
			snapshots[id] = snap
		}
	}

	sent := 0
	for _, sess := range sessions {
		visible := VisibleTo(sess.UserID, activeIDs, snapshots)
		if err := sess.SendEvent(MessageTypePresenceUpdate, PresencePayload{OnlineUserIDs: visible}); err != nil {
			// Session torn down mid-broadcast; it simply misses this push
			logger.Debug("Failed to push presence update",
				logger.ErrorField(err),
				logger.String("session_id", sess.ID),
			)
			continue
		}
		sent++
	}

	broadcastsTotal.WithLabelValues("success").Inc()
	broadcastFanout.Observe(float64(sent))

	logger.Debug("Presence broadcast complete",
		logger.Int("active_users", len(activeIDs)),
		logger.Int("pushed", sent),
	)
}
