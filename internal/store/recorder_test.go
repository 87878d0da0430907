package store

import (
	"context"
	"testing"
	"time"

	"example.com/timelinefeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_FlushesOnClose(t *testing.T) {
	journal := NewMock()
	r := NewRecorder(journal, 8, time.Second)

	r.Emit(followEvent("alice", "bob"))
	r.Emit(followEvent("bob", "alice"))
	r.Close()
	r.Close()

	events, err := journal.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.False(t, journal.Closed)

	r.Emit(followEvent("carol", "alice"))
	assert.EqualValues(t, 1, r.Dropped())
}

func TestRecorder_CountsFailures(t *testing.T) {
	journal := NewMock()
	journal.ShouldFail = true
	r := NewRecorder(journal, 8, time.Second)

	r.Emit(models.Event{ID: models.NewID(), Type: models.EventFollowed})
	r.Close()

	assert.EqualValues(t, 1, r.Failed())
}
