package feed

import (
	"sync"
	"time"

	"example.com/timelinefeed/internal/models"
)

// edgeSet keeps edges in the order they were created.
type edgeSet struct {
	order []models.UserID
	index map[models.UserID]time.Time
}

func newEdgeSet() *edgeSet {
	return &edgeSet{index: make(map[models.UserID]time.Time)}
}

func (e *edgeSet) add(u models.UserID, at time.Time) bool {
	if _, ok := e.index[u]; ok {
		return false
	}
	e.index[u] = at
	e.order = append(e.order, u)
	return true
}

func (e *edgeSet) remove(u models.UserID) bool {
	if _, ok := e.index[u]; !ok {
		return false
	}
	delete(e.index, u)
	for i, v := range e.order {
		if v == u {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

// FollowGraph stores who follows whom, indexed in both directions.
type FollowGraph struct {
	mu        sync.RWMutex
	followees map[models.UserID]*edgeSet
	followers map[models.UserID]*edgeSet
}

func NewFollowGraph() *FollowGraph {
	return &FollowGraph{
		followees: make(map[models.UserID]*edgeSet),
		followers: make(map[models.UserID]*edgeSet),
	}
}

// Follow records the edge f.Follower -> f.Followee. Following the same user
// twice is a no-op; the returned bool reports whether the edge is new.
func (g *FollowGraph) Follow(f models.Follow) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out, ok := g.followees[f.Follower]
	if !ok {
		out = newEdgeSet()
		g.followees[f.Follower] = out
	}
	if !out.add(f.Followee, f.Timestamp) {
		return false, nil
	}

	in, ok := g.followers[f.Followee]
	if !ok {
		in = newEdgeSet()
		g.followers[f.Followee] = in
	}
	in.add(f.Follower, f.Timestamp)
	return true, nil
}

// Unfollow removes the edge if present and reports whether it existed.
func (g *FollowGraph) Unfollow(follower, followee models.UserID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	out, ok := g.followees[follower]
	if !ok || !out.remove(followee) {
		return false
	}
	if in, ok := g.followers[followee]; ok {
		in.remove(follower)
	}
	return true
}

func (g *FollowGraph) IsFollowing(follower, followee models.UserID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out, ok := g.followees[follower]
	if !ok {
		return false
	}
	_, ok = out.index[followee]
	return ok
}

// FolloweesOf returns the users u follows, in follow order.
func (g *FollowGraph) FolloweesOf(u models.UserID) []models.UserID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return snapshot(g.followees[u])
}

// FollowersOf returns the users following u, in follow order.
func (g *FollowGraph) FollowersOf(u models.UserID) []models.UserID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return snapshot(g.followers[u])
}

func snapshot(e *edgeSet) []models.UserID {
	if e == nil {
		return []models.UserID{}
	}
	out := make([]models.UserID, len(e.order))
	copy(out, e.order)
	return out
}
