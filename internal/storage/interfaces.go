package storage

import (
	"context"
	"time"
)

// UserPrivacy is the per-user projection of privacy fields the gateway
// needs to personalize presence: who the user has blocked and whether
// the user has opted out of appearing online.
type UserPrivacy struct {
	UserID           string
	BlockedUserIDs   []string
	HideOnlineStatus bool
}

// UserStore defines the store operations the gateway depends on.
// The document store owns all durable state; the gateway only reads
// privacy projections and triggers narrow state transitions.
type UserStore interface {
	// FindUserPrivacyFields fetches privacy fields for all given users
	// in a single round-trip. Unknown ids are simply absent from the result.
	FindUserPrivacyFields(ctx context.Context, ids []string) ([]UserPrivacy, error)

	// GetGhostModePreference returns the user's persisted hide-online preference
	GetGhostModePreference(ctx context.Context, id string) (bool, error)

	// UpdateLastSeen records the user's last-active timestamp
	UpdateLastSeen(ctx context.Context, id string, t time.Time) error

	// MarkMessagesDelivered flips the delivered flag on all undelivered
	// messages addressed to receiverID and returns the distinct sender ids
	// whose messages actually transitioned. A second call with no new
	// undelivered messages returns an empty slice.
	MarkMessagesDelivered(ctx context.Context, receiverID string) ([]string, error)

	// Close closes the storage connection
	Close() error
}
