package feed

import (
	"sync"

	"example.com/timelinefeed/internal/models"
)

type timeline struct {
	mu       sync.RWMutex
	messages []models.Message
	ids      map[models.MessageID]struct{}
}

// TimelineStore holds one append-only timeline per user. Timelines are created
// on first reference and live as long as the store.
type TimelineStore struct {
	mu        sync.RWMutex
	timelines map[models.UserID]*timeline
}

func NewTimelineStore() *TimelineStore {
	return &TimelineStore{timelines: make(map[models.UserID]*timeline)}
}

func (s *TimelineStore) lookup(owner models.UserID) *timeline {
	s.mu.RLock()
	tl := s.timelines[owner]
	s.mu.RUnlock()
	return tl
}

func (s *TimelineStore) getOrCreate(owner models.UserID) *timeline {
	if tl := s.lookup(owner); tl != nil {
		return tl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.timelines[owner]
	if !ok {
		tl = &timeline{ids: make(map[models.MessageID]struct{})}
		s.timelines[owner] = tl
	}
	return tl
}

// Append adds msg to owner's timeline. A message already present on that
// timeline is not added twice. It reports whether the timeline changed.
func (s *TimelineStore) Append(owner models.UserID, msg models.Message) bool {
	tl := s.getOrCreate(owner)

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if _, ok := tl.ids[msg.ID]; ok {
		return false
	}
	tl.ids[msg.ID] = struct{}{}
	tl.messages = append(tl.messages, msg)
	return true
}

// MessagesFor returns a copy of owner's messages in insertion order.
func (s *TimelineStore) MessagesFor(owner models.UserID) []models.Message {
	tl := s.lookup(owner)
	if tl == nil {
		return []models.Message{}
	}

	tl.mu.RLock()
	defer tl.mu.RUnlock()
	out := make([]models.Message, len(tl.messages))
	copy(out, tl.messages)
	return out
}
