package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"example.com/timelinefeed/cmd/server"
	"example.com/timelinefeed/cmd/worker"
	appkafka "example.com/timelinefeed/internal/broker"
	"example.com/timelinefeed/internal/encoder"
	"example.com/timelinefeed/internal/feed"
	"example.com/timelinefeed/internal/fixtures"
	config "example.com/timelinefeed/internal/init"
	"example.com/timelinefeed/internal/live"
	"example.com/timelinefeed/internal/logger"
	"example.com/timelinefeed/internal/store"
	"go.uber.org/zap"
)

var logg = logger.New()

func main() {
	// Initialize application configuration
	cfg := config.Init()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logg.Error("main", "Invalid LOG_LEVEL, keeping info", err)
	}
	defer logg.Sync()

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cfg.Mode {
	case "server":
		err = runServer(ctx, cfg)
	case "worker":
		err = runWorker(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
	if err != nil {
		logg.Error("main", "Exiting", err)
		logg.Sync()
		os.Exit(1)
	}

	logg.Info("main", "Shutdown completed")
}

func kafkaConfig(cfg *config.Config) appkafka.KafkaConfig {
	return appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		Partition:    cfg.KafkaPartition,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}
}

// runServer restores the engine from the journal, mirrors new events to Kafka
// or straight to the journal, and serves HTTP until ctx ends.
func runServer(ctx context.Context, cfg *config.Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	fanOut, ok := feed.ParseFanOut(cfg.FanOutStrategy)
	if !ok {
		return fmt.Errorf("unknown FANOUT_STRATEGY %q", cfg.FanOutStrategy)
	}

	engine := feed.New(
		feed.WithEncoder(encoder.Markup{}),
		feed.WithMaxLength(cfg.MaxMessageLength),
		feed.WithFanOut(fanOut),
	)

	restored := 0
	if cfg.JournalDriver != "none" {
		journal, err := store.Open(cfg)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer journal.Close()

		events, err := journal.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading journal: %w", err)
		}
		if err := engine.Restore(events); err != nil {
			return err
		}
		restored = len(events)

		// with Kafka on, the worker owns journal writes
		if !cfg.KafkaEnabled {
			rec := store.NewRecorder(journal, cfg.EventBuffer, 0)
			defer rec.Close()
			engine.AddSink(rec)
		}
	}

	if cfg.KafkaEnabled {
		pub := appkafka.NewPublisher(appkafka.NewKafkaWriter(kafkaConfig(cfg)), cfg.EventBuffer, cfg.KafkaWriteTO)
		defer func() {
			if err := pub.Close(); err != nil {
				logg.Error("main", "Kafka publisher close failed", err)
			}
			logg.Info("main", "Kafka publisher closed",
				zap.Int64("dropped", pub.Dropped()), zap.Int64("failed", pub.Failed()))
		}()
		engine.AddSink(pub)
	}

	hub := live.NewHub(engine, 0)
	engine.AddSink(hub)

	// seed only a fresh instance so restarts do not duplicate demo data
	if cfg.SeedFile != "" && restored == 0 {
		fx, err := fixtures.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := fx.Apply(engine); err != nil {
			return fmt.Errorf("applying seed file: %w", err)
		}
		logg.Info("main", "Seed data loaded", zap.String("file", cfg.SeedFile))
	}

	logg.Info("main", "Engine ready",
		zap.String("fanout", engine.FanOut().String()), zap.Int("restored_events", restored))

	server.Run(ctx, server.New(engine, hub, []byte(cfg.JWTSecret)), server.Config{
		Addr:        cfg.ServerAddr,
		TLSCertFile: cfg.TLSCertFile,
		TLSKeyFile:  cfg.TLSKeyFile,
	})
	return nil
}

// runWorker consumes the Kafka event topic into the journal.
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.JournalDriver == "none" {
		return errors.New("worker mode needs JOURNAL_DRIVER=sqlite or cassandra")
	}
	journal, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}

	w := worker.New(journal, appkafka.NewKafkaReader(kafkaConfig(cfg)), cfg.WorkerCount, cfg.WorkerQueueSize)
	w.Run(ctx)
	return w.Close()
}
