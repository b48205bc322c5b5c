package gateway

import (
	"reflect"
	"testing"

	"github.com/adelhazem/social-gateway/internal/storage"
)

func snapshotsFor(privacy ...storage.UserPrivacy) map[string]PrivacySnapshot {
	snapshots := make(map[string]PrivacySnapshot, len(privacy))
	for _, p := range privacy {
		snapshots[p.UserID] = SnapshotFromPrivacy(p)
	}
	return snapshots
}

func TestVisibleTo_SelfAlwaysVisible(t *testing.T) {
	// Self is visible even with the hidden flag set and mutual blocks
	snapshots := snapshotsFor(
		storage.UserPrivacy{UserID: "a", HideOnlineStatus: true, BlockedUserIDs: []string{"a"}},
	)

	visible := VisibleTo("a", []string{"a"}, snapshots)
	if !reflect.DeepEqual(visible, []string{"a"}) {
		t.Errorf("Expected [a], got %v", visible)
	}
}

func TestVisibleTo_BlockedViewerCannotSeeBlocker(t *testing.T) {
	// A has blocked B: B cannot see A, regardless of B's own block list
	snapshots := snapshotsFor(
		storage.UserPrivacy{UserID: "a", BlockedUserIDs: []string{"b"}},
		storage.UserPrivacy{UserID: "b"},
	)

	visible := VisibleTo("b", []string{"a", "b"}, snapshots)
	if !reflect.DeepEqual(visible, []string{"b"}) {
		t.Errorf("Expected B to only see itself, got %v", visible)
	}

	// The reverse check runs from A's side with the roles swapped: here A
	// has no record of being blocked by B, so A still sees B
	visible = VisibleTo("a", []string{"a", "b"}, snapshots)
	if !reflect.DeepEqual(visible, []string{"a", "b"}) {
		t.Errorf("Expected A to see both, got %v", visible)
	}
}

func TestVisibleTo_BlockSymmetryOfEffect(t *testing.T) {
	// When both directions are recorded, each side hides the other
	snapshots := snapshotsFor(
		storage.UserPrivacy{UserID: "a", BlockedUserIDs: []string{"b"}},
		storage.UserPrivacy{UserID: "b", BlockedUserIDs: []string{"a"}},
	)

	if visible := VisibleTo("a", []string{"a", "b"}, snapshots); !reflect.DeepEqual(visible, []string{"a"}) {
		t.Errorf("Expected A to only see itself, got %v", visible)
	}
	if visible := VisibleTo("b", []string{"a", "b"}, snapshots); !reflect.DeepEqual(visible, []string{"b"}) {
		t.Errorf("Expected B to only see itself, got %v", visible)
	}
}

func TestVisibleTo_GhostModeHidesFromEveryoneButSelf(t *testing.T) {
	snapshots := snapshotsFor(
		storage.UserPrivacy{UserID: "a", HideOnlineStatus: true},
		storage.UserPrivacy{UserID: "b"},
		storage.UserPrivacy{UserID: "c"},
	)

	for _, viewer := range []string{"b", "c"} {
		visible := VisibleTo(viewer, []string{"a", "b", "c"}, snapshots)
		for _, id := range visible {
			if id == "a" {
				t.Errorf("Expected %s not to see hidden user a, got %v", viewer, visible)
			}
		}
	}

	// A still sees itself
	visible := VisibleTo("a", []string{"a", "b", "c"}, snapshots)
	if !reflect.DeepEqual(visible, []string{"a", "b", "c"}) {
		t.Errorf("Expected A to see everyone including itself, got %v", visible)
	}
}

func TestVisibleTo_MissingSnapshotDefaultsVisible(t *testing.T) {
	visible := VisibleTo("a", []string{"a", "b"}, map[string]PrivacySnapshot{})
	if !reflect.DeepEqual(visible, []string{"a", "b"}) {
		t.Errorf("Expected default visibility for unknown users, got %v", visible)
	}
}

func TestVisibleTo_ScenarioOneSided(t *testing.T) {
	// A and B online; A has blocked B. B's list omits A, A's list includes B.
	snapshots := snapshotsFor(
		storage.UserPrivacy{UserID: "a", BlockedUserIDs: []string{"b"}},
		storage.UserPrivacy{UserID: "b"},
	)
	active := []string{"a", "b"}

	if visible := VisibleTo("b", active, snapshots); !reflect.DeepEqual(visible, []string{"b"}) {
		t.Errorf("Expected B's list to omit A, got %v", visible)
	}
	if visible := VisibleTo("a", active, snapshots); !reflect.DeepEqual(visible, []string{"a", "b"}) {
		t.Errorf("Expected A's list to include B, got %v", visible)
	}
}

func TestVisibilityState(t *testing.T) {
	state := NewVisibilityState()

	if state.Hidden("a") {
		t.Error("Expected unknown user not to be hidden")
	}

	state.Set("a", true)
	if !state.Hidden("a") {
		t.Error("Expected a to be hidden after Set")
	}

	state.Set("a", false)
	if state.Hidden("a") {
		t.Error("Expected a to be visible after toggle off")
	}

	state.Set("a", true)
	state.Forget("a")
	if state.Hidden("a") {
		t.Error("Expected Forget to clear the entry")
	}
}
