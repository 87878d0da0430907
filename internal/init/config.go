package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// App mode & server
	Mode        string
	ServerAddr  string
	TLSCertFile string
	TLSKeyFile  string
	JWTSecret   string
	LogLevel    string

	// Engine
	MaxMessageLength int
	FanOutStrategy   string
	SeedFile         string

	// Journal
	JournalDriver string
	SQLitePath    string

	// Worker
	WorkerCount     int
	WorkerQueueSize int
	EventBuffer     int

	// Kafka
	KafkaEnabled   bool
	KafkaBroker    string
	KafkaTopic     string
	KafkaGroupID   string
	KafkaPartition int
	KafkaReadTO    time.Duration
	KafkaWriteTO   time.Duration

	// Cassandra
	CassandraHost     string
	CassandraKeyspace string
	CassandraUsername string
	CassandraPassword string
	CassandraTimeout  time.Duration
	CassandraDC       string
}

// Init loads the config using Viper and returns it
func Init() *Config {
	v := viper.New()
	setDefaults(v)

	// Load env variables
	v.AutomaticEnv()

	// Optional config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignore error if no file

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MODE", "server")
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("MAX_MESSAGE_LENGTH", 280)
	v.SetDefault("FANOUT_STRATEGY", "read")

	v.SetDefault("JOURNAL_DRIVER", "none")
	v.SetDefault("SQLITE_PATH", "./data/journal.db")

	v.SetDefault("WORKER_COUNT", 0)
	v.SetDefault("WORKER_QUEUE_SIZE", 0)
	v.SetDefault("EVENT_BUFFER", 1024)

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKER", "localhost:29092")
	v.SetDefault("KAFKA_TOPIC", "timeline-events")
	v.SetDefault("KAFKA_GROUP_ID", "journal-workers")
	v.SetDefault("KAFKA_PARTITION", 0)
	v.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")

	v.SetDefault("CASSANDRA_HOST", "localhost")
	v.SetDefault("CASSANDRA_KEYSPACE", "timelinefeed")
	v.SetDefault("CASSANDRA_TIMEOUT", "10s")
	// Optional: Cassandra username/password/DC, TLS files and seed file can be empty
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Mode:              v.GetString("MODE"),
		ServerAddr:        v.GetString("SERVER_ADDR"),
		TLSCertFile:       v.GetString("TLS_CERT_FILE"),
		TLSKeyFile:        v.GetString("TLS_KEY_FILE"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		MaxMessageLength:  v.GetInt("MAX_MESSAGE_LENGTH"),
		FanOutStrategy:    v.GetString("FANOUT_STRATEGY"),
		SeedFile:          v.GetString("SEED_FILE"),
		JournalDriver:     v.GetString("JOURNAL_DRIVER"),
		SQLitePath:        v.GetString("SQLITE_PATH"),
		WorkerCount:       v.GetInt("WORKER_COUNT"),
		WorkerQueueSize:   v.GetInt("WORKER_QUEUE_SIZE"),
		EventBuffer:       v.GetInt("EVENT_BUFFER"),
		KafkaEnabled:      v.GetBool("KAFKA_ENABLED"),
		KafkaBroker:       v.GetString("KAFKA_BROKER"),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:      v.GetString("KAFKA_GROUP_ID"),
		KafkaPartition:    v.GetInt("KAFKA_PARTITION"),
		KafkaReadTO:       parseDuration(v.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:      parseDuration(v.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
		CassandraHost:     v.GetString("CASSANDRA_HOST"),
		CassandraKeyspace: v.GetString("CASSANDRA_KEYSPACE"),
		CassandraUsername: v.GetString("CASSANDRA_USERNAME"),
		CassandraPassword: v.GetString("CASSANDRA_PASSWORD"),
		CassandraTimeout:  parseDuration(v.GetString("CASSANDRA_TIMEOUT"), 10*time.Second),
		CassandraDC:       v.GetString("CASSANDRA_DC"),
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}
