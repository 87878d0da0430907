package models

import "time"

type EventType string

const (
	EventMessagePosted     EventType = "message_posted"
	EventDirectMessageSent EventType = "direct_message_sent"
	EventFollowed          EventType = "followed"
	EventUnfollowed        EventType = "unfollowed"
	EventViewerAllowed     EventType = "viewer_allowed"
)

// Event is one entry of the engine's change stream. Exactly one of Message or
// Follow is set. For EventViewerAllowed, Follow carries owner (Followee) and
// viewer (Follower).
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Message    *Message  `json:"message,omitempty"`
	Follow     *Follow   `json:"follow,omitempty"`
	Mentions   []UserID  `json:"mentions,omitempty"`
}
