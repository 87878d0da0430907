package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/timelinefeed/internal/feed"
	"example.com/timelinefeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `
follows:
  - {follower: charlie, followee: alice}
  - {follower: charlie, followee: bob}
grants:
  - {owner: alice, viewer: dave}
posts:
  - {author: alice, content: hi}
  - {author: alice, content: "@bob check this http://x.com"}
  - {author: bob, content: hello}
direct_messages:
  - {from: mallory, to: alice, content: psst}
`

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o644))

	fx, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, fx.Follows, 2)
	assert.Len(t, fx.Posts, 3)

	e := feed.New()
	require.NoError(t, fx.Apply(e))

	fd, err := e.GetFeed("charlie", feed.Query{})
	require.NoError(t, err)
	assert.Len(t, fd, 3)

	bob, err := e.GetTimeline("bob", feed.Query{})
	require.NoError(t, err)
	assert.Len(t, bob, 2)

	assert.Len(t, e.GetInbox("alice"), 1)
	assert.True(t, e.CanView("dave", "alice"))
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("users: [alice]\n"))
	assert.Error(t, err)
}

func TestDecodeEmpty(t *testing.T) {
	fx, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fx.Posts)
}

func TestApplyStopsAtFirstError(t *testing.T) {
	fx := &Fixture{Follows: []Follow{{Follower: "alice", Followee: "alice"}}}
	err := fx.Apply(feed.New())
	assert.ErrorIs(t, err, models.ErrInvalidFollow)
	assert.Contains(t, err.Error(), "follows[0]")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
