package storage

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
)

// MockUserStore is an in-memory implementation of UserStore for testing
type MockUserStore struct {
	mu sync.Mutex

	Privacy    map[string]UserPrivacy
	GhostPrefs map[string]bool
	LastSeen   map[string]time.Time

	// Pending maps receiver id to the sender ids of undelivered messages
	// (one entry per message, so duplicates mean multiple messages).
	Pending map[string][]string

	FindErr     error
	GhostErr    error
	LastSeenErr error
	DeliverErr  error

	FindCalls    int
	DeliverCalls int
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Privacy:    make(map[string]UserPrivacy),
		GhostPrefs: make(map[string]bool),
		LastSeen:   make(map[string]time.Time),
		Pending:    make(map[string][]string),
	}
}

func (m *MockUserStore) FindUserPrivacyFields(ctx context.Context, ids []string) ([]UserPrivacy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls++
	if m.FindErr != nil {
		return nil, m.FindErr
	}

	result := make([]UserPrivacy, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.Privacy[id]; ok {
			result = append(result, p)
		} else {
			// Users without an explicit record have default privacy
			result = append(result, UserPrivacy{UserID: id})
		}
	}
	return result, nil
}

func (m *MockUserStore) GetGhostModePreference(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GhostErr != nil {
		return false, m.GhostErr
	}
	return m.GhostPrefs[id], nil
}

func (m *MockUserStore) UpdateLastSeen(ctx context.Context, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LastSeenErr != nil {
		return m.LastSeenErr
	}
	m.LastSeen[id] = t
	return nil
}

func (m *MockUserStore) MarkMessagesDelivered(ctx context.Context, receiverID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeliverCalls++
	if m.DeliverErr != nil {
		return nil, m.DeliverErr
	}

	senders := m.Pending[receiverID]
	delete(m.Pending, receiverID)
	return lo.Uniq(senders), nil
}

func (m *MockUserStore) Close() error {
	return nil
}
