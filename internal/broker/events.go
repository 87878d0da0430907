package appkafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"example.com/timelinefeed/internal/models"
	"github.com/segmentio/kafka-go"
)

const eventTypeHeader = "event-type"

var ErrEmptyEvent = errors.New("empty kafka message")

// EncodeEvent turns ev into a Kafka message keyed by the acting user.
func EncodeEvent(ev models.Event) (kafka.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshalling event: %w", err)
	}
	return kafka.Message{
		Key:     []byte(eventKey(ev)),
		Value:   data,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(ev.Type)}},
	}, nil
}

// DecodeEvent parses a message produced by EncodeEvent.
func DecodeEvent(msg kafka.Message) (models.Event, error) {
	if len(msg.Value) == 0 {
		return models.Event{}, ErrEmptyEvent
	}
	var ev models.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return models.Event{}, fmt.Errorf("unmarshalling event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return models.Event{}, fmt.Errorf("event without id or type")
	}
	return ev, nil
}

func eventKey(ev models.Event) string {
	switch {
	case ev.Message != nil:
		return string(ev.Message.Author)
	case ev.Follow != nil:
		return string(ev.Follow.Follower)
	}
	return ev.ID
}
