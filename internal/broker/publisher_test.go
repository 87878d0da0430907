package appkafka

import (
	"testing"
	"time"

	"example.com/timelinefeed/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postedEvent(author models.UserID, content string) models.Event {
	return models.Event{
		ID:         models.NewID(),
		Type:       models.EventMessagePosted,
		OccurredAt: time.Now(),
		Message: &models.Message{
			ID:        models.MessageID(models.NewID()),
			Author:    author,
			Content:   content,
			Timestamp: time.Now(),
		},
		Mentions: []models.UserID{"bob"},
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	ev := postedEvent("alice", "hi @bob")

	msg, err := EncodeEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, "alice", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, string(models.EventMessagePosted), string(msg.Headers[0].Value))

	got, err := DecodeEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Message.Content, got.Message.Content)
	assert.Equal(t, ev.Mentions, got.Mentions)
}

func TestDecodeEventErrors(t *testing.T) {
	_, err := DecodeEvent(kafka.Message{})
	assert.ErrorIs(t, err, ErrEmptyEvent)

	_, err = DecodeEvent(kafka.Message{Value: []byte("{invalid-json}")})
	assert.Error(t, err)

	_, err = DecodeEvent(kafka.Message{Value: []byte(`{"type":"followed"}`)})
	assert.Error(t, err)
}

func TestPublisher_FlushesOnClose(t *testing.T) {
	mock := &MockKafka{}
	p := NewPublisher(mock, 16, time.Second)

	for i := 0; i < 5; i++ {
		p.Emit(postedEvent("alice", "hi"))
	}
	require.NoError(t, p.Close())

	assert.Len(t, mock.Written(), 5)
	assert.True(t, mock.Closed)
	assert.Zero(t, p.Dropped())

	p.Emit(postedEvent("alice", "late"))
	assert.EqualValues(t, 1, p.Dropped())
	assert.NoError(t, p.Close())
}

func TestPublisher_CountsWriteFailures(t *testing.T) {
	p := NewPublisher(&MockKafkaFail{}, 4, time.Second)
	p.Emit(postedEvent("alice", "hi"))
	require.NoError(t, p.Close())

	assert.EqualValues(t, 1, p.Failed())
}
