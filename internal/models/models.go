package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultMaxContentLength is the strictest limit used across clients.
const DefaultMaxContentLength = 280

type UserID string

type MessageID string

// Validate rejects blank identifiers.
func (u UserID) Validate() error {
	if strings.TrimSpace(string(u)) == "" {
		return ErrInvalidUserID
	}
	return nil
}

// Message is a public post when Recipient is empty, otherwise a direct message
// visible only to Author and Recipient.
type Message struct {
	ID        MessageID `json:"id"`
	Author    UserID    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Recipient UserID    `json:"recipient,omitempty"`
}

func (m Message) IsPrivate() bool {
	return m.Recipient != ""
}

// VisibleTo reports whether u may read m.
func (m Message) VisibleTo(u UserID) bool {
	if !m.IsPrivate() {
		return true
	}
	return m.Author == u || m.Recipient == u
}

type Follow struct {
	Follower  UserID    `json:"follower"`
	Followee  UserID    `json:"followee"`
	Timestamp time.Time `json:"timestamp"`
}

func (f Follow) Validate() error {
	if err := f.Follower.Validate(); err != nil {
		return err
	}
	if err := f.Followee.Validate(); err != nil {
		return err
	}
	if f.Follower == f.Followee {
		return ErrSelfFollow
	}
	return nil
}

// ValidateContent checks raw (not yet encoded) message content.
func ValidateContent(content string, maxLen int) error {
	if strings.TrimSpace(content) == "" {
		return ErrBlankContent
	}
	if maxLen > 0 && utf8.RuneCountInString(content) > maxLen {
		return ErrContentTooLong
	}
	return nil
}

// NewID returns a time-ordered identifier for messages and events.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
