package store

import (
	"context"
	"errors"
	"sync"

	"example.com/timelinefeed/internal/models"
)

// MockJournal keeps events in memory for tests.
type MockJournal struct {
	mu         sync.Mutex
	Events     []models.Event
	seen       map[string]struct{}
	ShouldFail bool // flag to simulate failures
	Closed     bool
}

func NewMock() *MockJournal {
	return &MockJournal{seen: make(map[string]struct{})}
}

func (m *MockJournal) Append(ctx context.Context, ev models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: append failed")
	}
	if m.seen == nil {
		m.seen = make(map[string]struct{})
	}
	if _, ok := m.seen[ev.ID]; ok {
		return nil
	}
	m.seen[ev.ID] = struct{}{}
	m.Events = append(m.Events, ev)
	return nil
}

func (m *MockJournal) Load(ctx context.Context) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: load failed")
	}
	return append([]models.Event(nil), m.Events...), nil
}

// Len returns how many distinct events were appended.
func (m *MockJournal) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}

func (m *MockJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
