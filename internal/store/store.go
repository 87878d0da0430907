package store

//go:generate mockgen -destination=mock/mock_journal.go -package=mock example.com/timelinefeed/internal/store Journal

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	config "example.com/timelinefeed/internal/init"
	"example.com/timelinefeed/internal/logger"
	"example.com/timelinefeed/internal/models"
)

var logg = logger.New()

//go:embed migrations
var migrationsFS embed.FS

// Journal is an append-only record of engine events, replayed at boot.
type Journal interface {
	// Append stores ev. Appending an event ID twice stores it once.
	Append(ctx context.Context, ev models.Event) error
	// Load returns every stored event in the order they occurred.
	Load(ctx context.Context) ([]models.Event, error)
	Close() error
}

// Open connects the journal selected by cfg.JournalDriver.
func Open(cfg *config.Config) (Journal, error) {
	switch cfg.JournalDriver {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "cassandra":
		return NewCassandra(cfg)
	}
	return nil, fmt.Errorf("unknown journal driver %q", cfg.JournalDriver)
}

func encodePayload(ev models.Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshalling event: %w", err)
	}
	return string(data), nil
}

func decodePayloads(payloads []string) ([]models.Event, error) {
	events := make([]models.Event, 0, len(payloads))
	for _, p := range payloads {
		var ev models.Event
		if err := json.Unmarshal([]byte(p), &ev); err != nil {
			return nil, fmt.Errorf("unmarshalling event: %w", err)
		}
		events = append(events, ev)
	}
	// event IDs are UUIDv7, so lexical order is creation order
	sort.SliceStable(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}
