package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"example.com/timelinefeed/internal/models"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is an events table keyed by (stream, event_id), so inserts
// behave like Cassandra upserts.
type fakeSession struct {
	mu      sync.Mutex
	rows    map[string]string
	order   []string
	execs   int
	execErr error
	scanErr error
	closed  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{rows: make(map[string]string)}
}

func (f *fakeSession) Exec(ctx context.Context, stmt string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs++
	if f.execErr != nil {
		return f.execErr
	}
	key := values[0].(string) + "/" + values[1].(gocql.UUID).String()
	if _, ok := f.rows[key]; !ok {
		f.order = append(f.order, key)
	}
	f.rows[key] = values[4].(string)
	return nil
}

func (f *fakeSession) ScanStrings(ctx context.Context, stmt string, values ...interface{}) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	// newest insert first, Load must not rely on row order
	out := make([]string, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, f.rows[f.order[i]])
	}
	return out, nil
}

func (f *fakeSession) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func TestCassandraJournal_AppendIsIdempotentAndLoadIsOrdered(t *testing.T) {
	ctx := context.Background()
	sess := newFakeSession()
	c := &Cassandra{Session: sess}

	first := followEvent("alice", "bob")
	second := followEvent("bob", "alice")

	require.NoError(t, c.Append(ctx, first))
	require.NoError(t, c.Append(ctx, second))
	require.NoError(t, c.Append(ctx, first))

	events, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)
	assert.Equal(t, models.UserID("alice"), events[0].Follow.Follower)

	require.NoError(t, c.Close())
	assert.True(t, sess.closed)
}

func TestCassandraJournal_RejectsNonUUIDEventID(t *testing.T) {
	sess := newFakeSession()
	c := &Cassandra{Session: sess}

	ev := followEvent("alice", "bob")
	ev.ID = "not-a-uuid"

	assert.Error(t, c.Append(context.Background(), ev))
	assert.Zero(t, sess.execs)
}

func TestCassandraJournal_PropagatesSessionErrors(t *testing.T) {
	ctx := context.Background()
	sess := newFakeSession()
	c := &Cassandra{Session: sess}

	sess.execErr = errors.New("write timeout")
	assert.ErrorIs(t, c.Append(ctx, followEvent("alice", "bob")), sess.execErr)

	sess.scanErr = errors.New("read timeout")
	_, err := c.Load(ctx)
	assert.ErrorIs(t, err, sess.scanErr)
}

func TestCassandraJournal_LoadRejectsCorruptPayload(t *testing.T) {
	sess := newFakeSession()
	sess.rows["timeline/x"] = "{not json"
	sess.order = []string{"timeline/x"}

	_, err := (&Cassandra{Session: sess}).Load(context.Background())
	assert.Error(t, err)
}
