package feed

import (
	"sort"

	"example.com/timelinefeed/internal/models"
)

// FanOut selects how posts reach followers.
type FanOut int

const (
	// FanOutOnRead computes feeds from followees' timelines at query time.
	FanOutOnRead FanOut = iota
	// FanOutOnWrite copies every post into each follower's timeline when it is
	// posted. Unfollowing does not remove copies that were already made.
	FanOutOnWrite
)

func ParseFanOut(s string) (FanOut, bool) {
	switch s {
	case "", "read":
		return FanOutOnRead, true
	case "write":
		return FanOutOnWrite, true
	}
	return FanOutOnRead, false
}

func (f FanOut) String() string {
	if f == FanOutOnWrite {
		return "write"
	}
	return "read"
}

// FeedAggregator merges a viewer's timeline with the timelines of everyone
// the viewer follows.
//
// Aggregate is not atomic across the timelines it reads: a concurrent
// Unfollow or Append may or may not be reflected in the result.
type FeedAggregator struct {
	timelines *TimelineStore
	graph     *FollowGraph
}

func NewFeedAggregator(timelines *TimelineStore, graph *FollowGraph) *FeedAggregator {
	return &FeedAggregator{timelines: timelines, graph: graph}
}

// Aggregate returns the public messages of viewer and viewer's followees,
// newest first. Each message appears once. Messages with equal timestamps keep
// the order in which they were collected: viewer first, then followees in
// follow order.
func (a *FeedAggregator) Aggregate(viewer models.UserID) []models.Message {
	sources := append([]models.UserID{viewer}, a.graph.FolloweesOf(viewer)...)

	seen := make(map[models.MessageID]struct{})
	out := []models.Message{}
	for _, u := range sources {
		for _, m := range a.timelines.MessagesFor(u) {
			if m.IsPrivate() {
				continue
			}
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}

	sortNewestFirst(out)
	return out
}

func sortNewestFirst(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.After(msgs[j].Timestamp)
	})
}
