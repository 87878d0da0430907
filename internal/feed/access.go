package feed

import (
	"sync"

	"example.com/timelinefeed/internal/models"
)

// AccessList records which viewers an owner explicitly admitted to their
// timeline.
type AccessList struct {
	mu      sync.RWMutex
	allowed map[models.UserID]map[models.UserID]struct{}
}

func NewAccessList() *AccessList {
	return &AccessList{allowed: make(map[models.UserID]map[models.UserID]struct{})}
}

// Allow admits viewer to owner's timeline and reports whether that is new.
func (a *AccessList) Allow(owner, viewer models.UserID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.allowed[owner]
	if !ok {
		set = make(map[models.UserID]struct{})
		a.allowed[owner] = set
	}
	if _, ok := set[viewer]; ok {
		return false
	}
	set[viewer] = struct{}{}
	return true
}

func (a *AccessList) Allowed(owner, viewer models.UserID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.allowed[owner][viewer]
	return ok
}
