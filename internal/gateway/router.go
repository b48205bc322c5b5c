package gateway

import (
	"github.com/samber/lo"

	"github.com/adelhazem/social-gateway/pkg/logger"
)

// EventRouter forwards typed events to the target's live session. Routing is
// fire-and-forget: an offline target is a silent no-op, never an error.
// Durable events are persisted by the store before routing is attempted, so
// a dropped route only loses the live-update side channel.
type EventRouter struct {
	registry *SessionRegistry
}

// NewEventRouter creates an event router over the given registry
func NewEventRouter(registry *SessionRegistry) *EventRouter {
	return &EventRouter{registry: registry}
}

// Route delivers the event to the target user's session, if any. Reports
// whether the event was actually enqueued.
func (r *EventRouter) Route(targetUserID string, eventType MessageType, payload interface{}) bool {
	sess, ok := r.registry.Lookup(targetUserID)
	if !ok {
		eventsDroppedTotal.WithLabelValues(string(eventType)).Inc()
		logger.Debug("Target offline, dropping event",
			logger.String("target_user_id", targetUserID),
			logger.String("event_type", string(eventType)),
		)
		return false
	}

	return r.deliver(sess, eventType, payload)
}

// RouteCallSignal delivers a call-signaling event. The target reference may
// be a user id or a raw session id; user-based lookup wins, with the session
// id as fallback.
func (r *EventRouter) RouteCallSignal(targetRef string, eventType MessageType, payload interface{}) bool {
	sess, ok := r.registry.Lookup(targetRef)
	if !ok {
		sess, ok = r.registry.LookupBySessionID(targetRef)
	}
	if !ok {
		eventsDroppedTotal.WithLabelValues(string(eventType)).Inc()
		logger.Debug("Call signal target unresolvable, dropping",
			logger.String("target_ref", targetRef),
			logger.String("event_type", string(eventType)),
		)
		return false
	}

	return r.deliver(sess, eventType, payload)
}

// NotifyDelivered reports a delivery-flag transition back to the original
// senders: one message_delivered event per distinct sender, however many
// messages flipped. Offline senders are skipped and not counted; the store
// keeps the delivered flag, so nothing is lost for them.
func (r *EventRouter) NotifyDelivered(senderIDs []string, receiverID string) int {
	notified := 0
	for _, sender := range lo.Uniq(senderIDs) {
		if r.Route(sender, MessageTypeMessageDelivered, DeliveredPayload{ToUserID: receiverID}) {
			notified++
		}
	}
	if notified > 0 {
		deliveryReceiptsTotal.Add(float64(notified))
	}
	return notified
}

func (r *EventRouter) deliver(sess *Session, eventType MessageType, payload interface{}) bool {
	if err := sess.SendEvent(eventType, payload); err != nil {
		eventsDroppedTotal.WithLabelValues(string(eventType)).Inc()
		logger.Debug("Failed to deliver event",
			logger.ErrorField(err),
			logger.String("session_id", sess.ID),
			logger.String("event_type", string(eventType)),
		)
		return false
	}
	eventsRoutedTotal.WithLabelValues(string(eventType)).Inc()
	return true
}
