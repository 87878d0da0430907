package live

import (
	"testing"
	"time"

	"example.com/timelinefeed/internal/feed"
	"example.com/timelinefeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, s *Subscription) (models.Message, bool) {
	t.Helper()
	select {
	case m, ok := <-s.C():
		return m, ok
	case <-time.After(50 * time.Millisecond):
		return models.Message{}, false
	}
}

func TestHub_DeliversToFollowersMentionsAndAuthor(t *testing.T) {
	e := feed.New()
	hub := NewHub(e, 8)
	e.AddSink(hub)

	require.NoError(t, e.Follow("charlie", "alice"))

	charlie := hub.Subscribe("charlie")
	bob := hub.Subscribe("bob")
	alice := hub.Subscribe("alice")
	dave := hub.Subscribe("dave")
	defer charlie.Cancel()
	defer bob.Cancel()
	defer alice.Cancel()
	defer dave.Cancel()

	_, err := e.PostMessage("alice", "hey @bob")
	require.NoError(t, err)

	for _, s := range []*Subscription{charlie, bob, alice} {
		m, ok := receive(t, s)
		require.True(t, ok)
		assert.Equal(t, models.UserID("alice"), m.Author)
	}
	_, ok := receive(t, dave)
	assert.False(t, ok)
}

func TestHub_DirectMessagesOnlyToParticipants(t *testing.T) {
	e := feed.New()
	hub := NewHub(e, 8)
	e.AddSink(hub)
	require.NoError(t, e.Follow("charlie", "mallory"))

	alice := hub.Subscribe("alice")
	mallory := hub.Subscribe("mallory")
	charlie := hub.Subscribe("charlie")
	defer alice.Cancel()
	defer mallory.Cancel()
	defer charlie.Cancel()

	_, err := e.SendDirectMessage("mallory", "alice", "psst")
	require.NoError(t, err)

	m, ok := receive(t, alice)
	require.True(t, ok)
	assert.True(t, m.IsPrivate())

	_, ok = receive(t, mallory)
	assert.True(t, ok)

	_, ok = receive(t, charlie)
	assert.False(t, ok)
}

func TestHub_DropsWhenSubscriberIsSlow(t *testing.T) {
	e := feed.New()
	hub := NewHub(e, 1)
	e.AddSink(hub)

	s := hub.Subscribe("alice")
	defer s.Cancel()

	_, _ = e.PostMessage("alice", "one")
	_, _ = e.PostMessage("alice", "two")

	assert.EqualValues(t, 1, hub.Dropped())
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub(feed.New(), 1)
	s := hub.Subscribe("alice")
	assert.Equal(t, 1, hub.Subscribers())

	s.Cancel()
	s.Cancel()
	assert.Equal(t, 0, hub.Subscribers())

	_, ok := <-s.C()
	assert.False(t, ok)
}
