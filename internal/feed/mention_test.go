package feed

import (
	"testing"

	"example.com/timelinefeed/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		content string
		want    []models.UserID
	}{
		{content: "Hello @alice and @bob, how are you @bob?", want: []models.UserID{"alice", "bob"}},
		{content: "no mentions here", want: []models.UserID{}},
		{content: "@bob check this http://x.com", want: []models.UserID{"bob"}},
		{content: "trailing @ sign @", want: []models.UserID{}},
		{content: "@carol_2!@dave", want: []models.UserID{"carol_2", "dave"}},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.content))
		})
	}
}

func TestMentionRouter_RouteDeliversOncePerUser(t *testing.T) {
	s := NewTimelineStore()
	r := NewMentionRouter(s)
	m := msgAt("1", "alice", 0)

	delivered := r.Route(m, []models.UserID{"bob", "carol"})

	assert.Equal(t, []models.UserID{"bob", "carol"}, delivered)
	assert.Equal(t, []string{"1"}, ids(s.MessagesFor("bob")))
	assert.Equal(t, []string{"1"}, ids(s.MessagesFor("carol")))
	assert.Empty(t, s.MessagesFor("alice"))

	assert.Empty(t, r.Route(m, []models.UserID{"bob"}))
	assert.Equal(t, 1, len(s.MessagesFor("bob")))
}
