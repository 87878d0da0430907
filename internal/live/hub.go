// Package live pushes newly posted messages to connected viewers.
package live

import (
	"sync"
	"sync/atomic"

	"example.com/timelinefeed/internal/logger"
	"example.com/timelinefeed/internal/models"
)

var logg = logger.New()

// FollowLookup answers whether follower currently follows followee.
type FollowLookup interface {
	IsFollowing(follower, followee models.UserID) bool
}

type Subscription struct {
	viewer models.UserID
	ch     chan models.Message
	hub    *Hub
	once   sync.Once
}

// C delivers messages for the subscribed viewer. It is closed by Cancel.
func (s *Subscription) C() <-chan models.Message { return s.ch }

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Hub is an engine event sink fanning messages out to live subscribers.
// Slow subscribers lose messages rather than stall the poster.
type Hub struct {
	follows FollowLookup
	buffer  int

	mu   sync.RWMutex
	subs map[*Subscription]struct{}

	dropped atomic.Int64
}

func NewHub(follows FollowLookup, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		follows: follows,
		buffer:  buffer,
		subs:    make(map[*Subscription]struct{}),
	}
}

func (h *Hub) Subscribe(viewer models.UserID) *Subscription {
	s := &Subscription{viewer: viewer, ch: make(chan models.Message, h.buffer), hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func (h *Hub) Emit(ev models.Event) {
	if ev.Message == nil {
		return
	}
	if ev.Type != models.EventMessagePosted && ev.Type != models.EventDirectMessageSent {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if !h.wants(s.viewer, ev) {
			continue
		}
		select {
		case s.ch <- *ev.Message:
		default:
			h.dropped.Add(1)
			logg.Debug("live", "subscriber too slow, message dropped")
		}
	}
}

func (h *Hub) wants(viewer models.UserID, ev models.Event) bool {
	msg := ev.Message
	if ev.Type == models.EventDirectMessageSent {
		return msg.VisibleTo(viewer)
	}
	if msg.Author == viewer {
		return true
	}
	for _, m := range ev.Mentions {
		if m == viewer {
			return true
		}
	}
	return h.follows.IsFollowing(viewer, msg.Author)
}
