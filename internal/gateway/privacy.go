package gateway

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/adelhazem/social-gateway/internal/storage"
)

// PrivacySnapshot is a read-only projection of one user's privacy state,
// recomputed from the store on every broadcast cycle.
type PrivacySnapshot struct {
	BlockedUserIDs map[string]struct{}
	Hidden         bool
}

// SnapshotFromPrivacy converts a store record into a snapshot
func SnapshotFromPrivacy(p storage.UserPrivacy) PrivacySnapshot {
	blocked := make(map[string]struct{}, len(p.BlockedUserIDs))
	for _, id := range p.BlockedUserIDs {
		blocked[id] = struct{}{}
	}
	return PrivacySnapshot{
		BlockedUserIDs: blocked,
		Hidden:         p.HideOnlineStatus,
	}
}

// VisibleTo computes the subset of candidates the viewer may see online.
// A candidate is visible when it is the viewer itself, or when the candidate
// is not hidden and has not blocked the viewer. The reverse direction
// (viewer blocked candidate) is enforced by the same check running from the
// candidate's side, so blocking hides both parties from each other across
// the full broadcast.
//
// Pure: no registry or transport state is consulted, only the snapshots.
func VisibleTo(viewerID string, candidateIDs []string, snapshots map[string]PrivacySnapshot) []string {
	visible := lo.Filter(candidateIDs, func(candidateID string, _ int) bool {
		if candidateID == viewerID {
			return true
		}
		snap, ok := snapshots[candidateID]
		if !ok {
			// No privacy record means default visibility
			return true
		}
		if snap.Hidden {
			return false
		}
		if _, blocked := snap.BlockedUserIDs[viewerID]; blocked {
			return false
		}
		return true
	})

	sort.Strings(visible)
	return visible
}

// VisibilityState tracks runtime ghost-mode flags for connected users.
// Seeded from the persisted preference at connect, mutated by the toggle
// event, cleared at disconnect. Non-authoritative: lost on restart.
type VisibilityState struct {
	hidden map[string]bool
	mu     sync.RWMutex
}

// NewVisibilityState creates an empty visibility state
func NewVisibilityState() *VisibilityState {
	return &VisibilityState{
		hidden: make(map[string]bool),
	}
}

// Set records whether the user is in ghost mode
func (v *VisibilityState) Set(userID string, hidden bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden[userID] = hidden
}

// Hidden reports whether the user is currently in ghost mode
func (v *VisibilityState) Hidden(userID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.hidden[userID]
}

// Forget drops the user's entry at disconnect
func (v *VisibilityState) Forget(userID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.hidden, userID)
}
