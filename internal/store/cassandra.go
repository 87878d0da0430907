package store

import (
	"context"
	"fmt"
	"net/url"
	"time"

	config "example.com/timelinefeed/internal/init"
	"example.com/timelinefeed/internal/models"
	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const cassandraStream = "timeline"

// SessionInterface is the part of a Cassandra session the journal uses.
type SessionInterface interface {
	Exec(ctx context.Context, stmt string, values ...interface{}) error
	// ScanStrings returns the single text column of every row.
	ScanStrings(ctx context.Context, stmt string, values ...interface{}) ([]string, error)
	Close()
}

// gocqlSession adapts *gocql.Session to SessionInterface.
type gocqlSession struct {
	s *gocql.Session
}

func (g gocqlSession) Exec(ctx context.Context, stmt string, values ...interface{}) error {
	return g.s.Query(stmt, values...).WithContext(ctx).Exec()
}

func (g gocqlSession) ScanStrings(ctx context.Context, stmt string, values ...interface{}) ([]string, error) {
	iter := g.s.Query(stmt, values...).WithContext(ctx).PageSize(5000).Iter()
	var v string
	var out []string
	for iter.Scan(&v) {
		out = append(out, v)
	}
	return out, iter.Close()
}

func (g gocqlSession) Close() { g.s.Close() }

// Cassandra stores the journal in a single clustered partition ordered by
// event ID.
type Cassandra struct {
	Session SessionInterface
}

// NewCassandra ensures the keyspace, applies migrations and opens a session.
func NewCassandra(cfg *config.Config) (*Cassandra, error) {
	if err := ensureKeyspace(cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure keyspace: %w", err)
	}

	if err := runCassandraMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Consistency = gocql.Quorum

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	logg.Info("store", "Connected to Cassandra keyspace (host anonymized)")
	return &Cassandra{Session: gocqlSession{s: sess}}, nil
}

func newCluster(cfg *config.Config) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout

	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.CassandraUsername,
			Password: cfg.CassandraPassword,
		}
	}

	if cfg.CassandraDC != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(cfg.CassandraDC)
	}
	return cluster
}

// --- Ensure keyspace exists before migrations ---

func ensureKeyspace(cfg *config.Config) error {
	cluster := newCluster(cfg)
	cluster.Keyspace = "system"
	sess, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra system keyspace: %w", err)
	}
	defer sess.Close()

	query := fmt.Sprintf(`
        CREATE KEYSPACE IF NOT EXISTS %s
        WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1};
    `, cfg.CassandraKeyspace)

	if err := sess.Query(query).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}

	logg.Info("store", "Ensured Cassandra keyspace exists (keyspace name anonymized)")
	return nil
}

// --- Migration runner ---

func runCassandraMigrations(cfg *config.Config) error {
	src, err := iofs.New(migrationsFS, "migrations/cassandra")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	dbURL := url.URL{
		Scheme:   "cassandra",
		Host:     cfg.CassandraHost,
		Path:     "/" + cfg.CassandraKeyspace,
		RawQuery: "x-migrations-table=schema_migrations&x-multi-statement=true",
	}
	if cfg.CassandraUsername != "" {
		dbURL.User = url.UserPassword(cfg.CassandraUsername, cfg.CassandraPassword)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL.String())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logg.Info("store", "No new migrations to apply")
	} else {
		logg.Info("store", "Migrations applied successfully")
	}
	return nil
}

func (c *Cassandra) Append(ctx context.Context, ev models.Event) error {
	id, err := gocql.ParseUUID(ev.ID)
	if err != nil {
		return fmt.Errorf("event id %q: %w", ev.ID, err)
	}
	payload, err := encodePayload(ev)
	if err != nil {
		return err
	}

	// primary key upsert makes redelivered events harmless
	if err := c.Session.Exec(ctx, `
		INSERT INTO events (stream, event_id, event_type, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?)`,
		cassandraStream, id, string(ev.Type), ev.OccurredAt, payload,
	); err != nil {
		logg.Error("store", "Failed to append event", err)
		return err
	}
	return nil
}

func (c *Cassandra) Load(ctx context.Context) ([]models.Event, error) {
	start := time.Now()
	payloads, err := c.Session.ScanStrings(ctx,
		`SELECT payload FROM events WHERE stream = ?`,
		cassandraStream,
	)
	if err != nil {
		logg.Error("store", "Failed to load journal", err)
		return nil, err
	}

	events, err := decodePayloads(payloads)
	if err != nil {
		return nil, err
	}
	logg.Info("store", fmt.Sprintf("Loaded %d events from Cassandra in %s", len(events), time.Since(start)))
	return events, nil
}

// Close gracefully closes Cassandra session.
func (c *Cassandra) Close() error {
	if c.Session != nil {
		c.Session.Close()
		logg.Info("store", "Cassandra session closed")
	}
	return nil
}
