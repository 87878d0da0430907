package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeedAggregator_NewestFirstAcrossFollowees(t *testing.T) {
	s := NewTimelineStore()
	g := NewFollowGraph()
	a := NewFeedAggregator(s, g)

	_, _ = g.Follow(follow("charlie", "alice"))
	_, _ = g.Follow(follow("charlie", "bob"))

	s.Append("alice", msgAt("a1", "alice", 1*time.Minute))
	s.Append("bob", msgAt("b1", "bob", 2*time.Minute))
	s.Append("charlie", msgAt("c1", "charlie", 3*time.Minute))
	s.Append("dave", msgAt("d1", "dave", 4*time.Minute))

	assert.Equal(t, []string{"c1", "b1", "a1"}, ids(a.Aggregate("charlie")))
}

func TestFeedAggregator_ExcludesPrivateMessages(t *testing.T) {
	s := NewTimelineStore()
	g := NewFollowGraph()
	a := NewFeedAggregator(s, g)

	dm := msgAt("dm", "alice", time.Minute)
	dm.Recipient = "bob"
	s.Append("alice", dm)
	s.Append("alice", msgAt("pub", "alice", 0))

	assert.Equal(t, []string{"pub"}, ids(a.Aggregate("alice")))
}

func TestFeedAggregator_StableTieBreak(t *testing.T) {
	s := NewTimelineStore()
	g := NewFollowGraph()
	a := NewFeedAggregator(s, g)
	_, _ = g.Follow(follow("viewer", "x"))
	_, _ = g.Follow(follow("viewer", "y"))

	s.Append("y", msgAt("y1", "y", 0))
	s.Append("x", msgAt("x1", "x", 0))
	s.Append("viewer", msgAt("v1", "viewer", 0))
	s.Append("x", msgAt("x2", "x", 0))

	// viewer first, then followees in follow order, insertion order within each
	assert.Equal(t, []string{"v1", "x1", "x2", "y1"}, ids(a.Aggregate("viewer")))
}

func TestFeedAggregator_DeduplicatesSharedMessages(t *testing.T) {
	s := NewTimelineStore()
	g := NewFollowGraph()
	a := NewFeedAggregator(s, g)
	_, _ = g.Follow(follow("charlie", "alice"))
	_, _ = g.Follow(follow("charlie", "bob"))

	m := msgAt("1", "alice", 0)
	s.Append("alice", m)
	s.Append("bob", m) // bob was mentioned

	assert.Equal(t, []string{"1"}, ids(a.Aggregate("charlie")))
}

func TestFeedAggregator_UnfollowStopsSurfacing(t *testing.T) {
	s := NewTimelineStore()
	g := NewFollowGraph()
	a := NewFeedAggregator(s, g)
	_, _ = g.Follow(follow("charlie", "alice"))
	s.Append("alice", msgAt("1", "alice", 0))

	assert.Len(t, a.Aggregate("charlie"), 1)
	g.Unfollow("charlie", "alice")
	assert.Empty(t, a.Aggregate("charlie"))
}

func TestParseFanOut(t *testing.T) {
	f, ok := ParseFanOut("write")
	assert.True(t, ok)
	assert.Equal(t, FanOutOnWrite, f)

	f, ok = ParseFanOut("")
	assert.True(t, ok)
	assert.Equal(t, FanOutOnRead, f)

	_, ok = ParseFanOut("sideways")
	assert.False(t, ok)
}
