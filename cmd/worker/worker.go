package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	appkafka "example.com/timelinefeed/internal/broker"
	"example.com/timelinefeed/internal/logger"
	"example.com/timelinefeed/internal/store"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var logg = logger.New()

// Worker consumes engine events from Kafka and appends them to the journal
// concurrently. Order across workers does not matter: the journal is loaded
// sorted by event ID.
type Worker struct {
	journal      store.Journal
	reader       appkafka.KafkaReader
	workerCount  int
	jobQueueSize int

	stored atomic.Int64
	failed atomic.Int64
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(journal store.Journal, reader appkafka.KafkaReader, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	return &Worker{
		journal:      journal,
		reader:       reader,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing. It returns after ctx
// is cancelled and every worker has stopped.
func (w *Worker) Run(ctx context.Context) {
	if w.workerCount <= 0 {
		w.workerCount = 1
	}
	if w.jobQueueSize <= 0 {
		w.jobQueueSize = 10
	}

	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan kafka.Message, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully",
		zap.Int64("stored", w.stored.Load()), zap.Int64("failed", w.failed.Load()))
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- kafka.Message) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				if !waitWithContext(ctx, 50*time.Millisecond) {
					return
				}
				continue
			}

			for enqueued := false; !enqueued; {
				select {
				case jobs <- msg:
					enqueued = true
				case <-ctx.Done():
					return
				case <-time.After(100 * time.Millisecond):
					logg.Info("worker", "Queue full, waiting to enqueue Kafka message")
				}
			}
		}
	}
}

// processLoop decodes events and appends them to the journal.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.handle(ctx, msg); err != nil {
				w.failed.Add(1)
				logg.Error("worker", "Failed to journal event", err)
				continue
			}
			w.stored.Add(1)
		}
	}
}

// handle journals a single Kafka message. Empty messages are skipped.
func (w *Worker) handle(ctx context.Context, msg kafka.Message) error {
	ev, err := appkafka.DecodeEvent(msg)
	if errors.Is(err, appkafka.ErrEmptyEvent) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := w.journal.Append(ctx, ev); err != nil {
		return fmt.Errorf("appending event %s: %w", ev.ID, err)
	}
	logg.Debug("worker", "Event journaled", zap.String("type", string(ev.Type)), zap.String("id", ev.ID))
	return nil
}

// Stored and Failed count processed messages since Run started.
func (w *Worker) Stored() int64 { return w.stored.Load() }
func (w *Worker) Failed() int64 { return w.failed.Load() }

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down the Kafka reader and the journal.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}

	logg.Info("worker", "Closing journal")
	return w.journal.Close()
}
