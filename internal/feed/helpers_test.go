package feed

import (
	"sync"
	"time"

	"example.com/timelinefeed/internal/models"
)

var epoch = time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

// stepClock advances by one second on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock { return &stepClock{now: epoch} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingSink) Emit(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

func msgAt(id string, author models.UserID, offset time.Duration) models.Message {
	return models.Message{
		ID:        models.MessageID(id),
		Author:    author,
		Content:   "message " + id,
		Timestamp: epoch.Add(offset),
	}
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.ID)
	}
	return out
}
