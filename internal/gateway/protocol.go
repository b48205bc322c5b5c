package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/adelhazem/social-gateway/pkg/logger"
)

// MessageType represents the type of a gateway message
type MessageType string

// Inbound message types
const (
	MessageTypeToggleGhostMode MessageType = "toggle_ghost_mode"
	MessageTypeTypingStart     MessageType = "typing_start"
	MessageTypeTypingStop      MessageType = "typing_stop"
	MessageTypeReaction        MessageType = "reaction"
	MessageTypeCallOffer       MessageType = "call_offer"
	MessageTypeCallAnswer      MessageType = "call_answer"
	MessageTypeCallEnd         MessageType = "call_end"
	MessageTypeJoinGroup       MessageType = "join_group"
	MessageTypeLeaveGroup      MessageType = "leave_group"
	MessageTypeGroupMessage    MessageType = "group_message"
	MessageTypePing            MessageType = "ping"
)

// Outbound message types
const (
	MessageTypePresenceUpdate    MessageType = "presence_update"
	MessageTypeMessageDelivered  MessageType = "message_delivered"
	MessageTypeGroupMessageEvent MessageType = "group_message_event"
	MessageTypeError             MessageType = "error"
	MessageTypePong              MessageType = "pong"
	MessageTypeSuccess           MessageType = "success"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type    string          `json:"type"`
	Target  string          `json:"target,omitempty"`  // user id (or session id for call signals)
	GroupID string          `json:"groupId,omitempty"` // group channel id
	Event   string          `json:"event,omitempty"`   // group event subtype
	Enabled bool            `json:"enabled,omitempty"` // ghost mode toggle value
	Data    json.RawMessage `json:"data,omitempty"`
}

// ServerEvent represents an event pushed to the client
type ServerEvent struct {
	Type    MessageType `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// PresencePayload carries the personalized online-user list
type PresencePayload struct {
	OnlineUserIDs []string `json:"onlineUsers"`
}

// DeliveredPayload tells a sender which recipient came online
type DeliveredPayload struct {
	ToUserID string `json:"toUserId"`
}

// ForwardedPayload carries a peer-to-peer event (typing, reaction, call
// signaling) forwarded verbatim to its target
type ForwardedPayload struct {
	FromUserID string          `json:"fromUserId"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// GroupEventPayload carries a group-channel event fanned out to members
type GroupEventPayload struct {
	GroupID    string          `json:"groupId"`
	Event      string          `json:"event"`
	FromUserID string          `json:"fromUserId"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// handleClientMessage dispatches a parsed client message for a session
func (h *Hub) handleClientMessage(sess *Session, msg *ClientMessage) error {
	switch MessageType(msg.Type) {
	case MessageTypeToggleGhostMode:
		h.visibility.Set(sess.UserID, msg.Enabled)
		logger.Debug("Ghost mode toggled",
			logger.String("user_id", sess.UserID),
			logger.Bool("enabled", msg.Enabled),
		)
		h.broadcaster.BroadcastAll(h.ctx)
		return sess.SendEvent(MessageTypeSuccess, map[string]interface{}{
			"action":  "ghost_mode",
			"enabled": msg.Enabled,
		})

	case MessageTypeTypingStart, MessageTypeTypingStop, MessageTypeReaction:
		if msg.Target == "" {
			return sess.SendError("invalid_request", "target field required")
		}
		h.router.Route(msg.Target, MessageType(msg.Type), ForwardedPayload{
			FromUserID: sess.UserID,
			Data:       msg.Data,
		})
		return nil

	case MessageTypeCallOffer, MessageTypeCallAnswer, MessageTypeCallEnd:
		if msg.Target == "" {
			return sess.SendError("invalid_request", "target field required")
		}
		h.router.RouteCallSignal(msg.Target, MessageType(msg.Type), ForwardedPayload{
			FromUserID: sess.UserID,
			Data:       msg.Data,
		})
		return nil

	case MessageTypeJoinGroup:
		if msg.GroupID == "" {
			return sess.SendError("invalid_request", "groupId field required")
		}
		h.rooms.Join(msg.GroupID, sess)
		return sess.SendEvent(MessageTypeSuccess, map[string]string{
			"action":  "joined",
			"groupId": msg.GroupID,
		})

	case MessageTypeLeaveGroup:
		if msg.GroupID == "" {
			return sess.SendError("invalid_request", "groupId field required")
		}
		h.rooms.Leave(msg.GroupID, sess)
		return sess.SendEvent(MessageTypeSuccess, map[string]string{
			"action":  "left",
			"groupId": msg.GroupID,
		})

	case MessageTypeGroupMessage:
		if msg.GroupID == "" {
			return sess.SendError("invalid_request", "groupId field required")
		}
		h.rooms.Broadcast(msg.GroupID, MessageTypeGroupMessageEvent, GroupEventPayload{
			GroupID:    msg.GroupID,
			Event:      msg.Event,
			FromUserID: sess.UserID,
			Data:       msg.Data,
		}, sess.ID)
		return nil

	case MessageTypePing:
		return sess.SendEvent(MessageTypePong, nil)

	default:
		return sess.SendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}
