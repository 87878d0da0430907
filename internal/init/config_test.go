package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitDefaults(t *testing.T) {
	cfg := Init()

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, 280, cfg.MaxMessageLength)
	assert.Equal(t, "read", cfg.FanOutStrategy)
	assert.Equal(t, "none", cfg.JournalDriver)
	assert.Equal(t, 10*time.Second, cfg.KafkaReadTO)
	assert.False(t, cfg.KafkaEnabled)
}

func TestInitFromEnv(t *testing.T) {
	t.Setenv("FANOUT_STRATEGY", "write")
	t.Setenv("MAX_MESSAGE_LENGTH", "140")
	t.Setenv("KAFKA_WRITE_TIMEOUT", "not-a-duration")

	cfg := Init()

	assert.Equal(t, "write", cfg.FanOutStrategy)
	assert.Equal(t, 140, cfg.MaxMessageLength)
	assert.Equal(t, 10*time.Second, cfg.KafkaWriteTO)
}
