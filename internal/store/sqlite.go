package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"example.com/timelinefeed/internal/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores the journal in a single local database file.
type SQLite struct {
	db *sqlx.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runSQLiteMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	logg.Info("store", "Opened SQLite journal")
	return &SQLite{db: db}, nil
}

func runSQLiteMigrations(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (s *SQLite) Append(ctx context.Context, ev models.Event) error {
	payload, err := encodePayload(ev)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (event_id, event_type, occurred_at, payload) VALUES (?, ?, ?, ?)`,
		ev.ID, string(ev.Type), ev.OccurredAt.UTC().Format(time.RFC3339Nano), payload,
	)
	if err != nil {
		logg.Error("store", "Failed to append event", err)
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) ([]models.Event, error) {
	var payloads []string
	if err := s.db.SelectContext(ctx, &payloads, `SELECT payload FROM events ORDER BY event_id`); err != nil {
		return nil, fmt.Errorf("selecting events: %w", err)
	}
	return decodePayloads(payloads)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
