package feed

import (
	"sync"

	"example.com/timelinefeed/internal/models"
)

// DirectMessageStore keeps private messages apart from public timelines.
type DirectMessageStore struct {
	mu     sync.RWMutex
	byUser map[models.UserID][]models.Message
}

func NewDirectMessageStore() *DirectMessageStore {
	return &DirectMessageStore{byUser: make(map[models.UserID][]models.Message)}
}

// Send stores msg for both its author and its recipient. msg must be private.
func (s *DirectMessageStore) Send(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[msg.Author] = append(s.byUser[msg.Author], msg)
	if msg.Recipient != msg.Author {
		s.byUser[msg.Recipient] = append(s.byUser[msg.Recipient], msg)
	}
}

// InboxFor returns every direct message user sent or received, newest first.
func (s *DirectMessageStore) InboxFor(user models.UserID) []models.Message {
	s.mu.RLock()
	msgs := s.byUser[user]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out
}
