package feed

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineStore_UnknownOwnerIsEmpty(t *testing.T) {
	s := NewTimelineStore()
	msgs := s.MessagesFor("nobody")
	require.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestTimelineStore_PreservesInsertionOrder(t *testing.T) {
	s := NewTimelineStore()
	s.Append("alice", msgAt("1", "alice", 10*time.Minute))
	s.Append("alice", msgAt("2", "alice", 0))
	s.Append("alice", msgAt("3", "alice", 5*time.Minute))

	assert.Equal(t, []string{"1", "2", "3"}, ids(s.MessagesFor("alice")))
}

func TestTimelineStore_NoAliasing(t *testing.T) {
	s := NewTimelineStore()
	s.Append("alice", msgAt("1", "alice", 0))

	assert.Empty(t, s.MessagesFor("bob"))

	got := s.MessagesFor("alice")
	got[0].Content = "mutated"
	assert.Equal(t, "message 1", s.MessagesFor("alice")[0].Content)
}

func TestTimelineStore_SameMessageOncePerOwner(t *testing.T) {
	s := NewTimelineStore()
	m := msgAt("1", "alice", 0)

	assert.True(t, s.Append("alice", m))
	assert.False(t, s.Append("alice", m))
	assert.True(t, s.Append("bob", m))

	assert.Equal(t, 1, len(s.MessagesFor("alice")))
	assert.Equal(t, 1, len(s.MessagesFor("bob")))
}

func TestTimelineStore_ConcurrentAppends(t *testing.T) {
	s := NewTimelineStore()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append("alice", msgAt(fmt.Sprintf("%d-%d", w, i), "alice", 0))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, len(s.MessagesFor("alice")))
}
