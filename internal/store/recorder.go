package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"example.com/timelinefeed/internal/models"
	"go.uber.org/zap"
)

// Recorder is an engine event sink that appends events straight to a
// journal, for deployments without Kafka. Emit never blocks; overflow is
// dropped and counted.
type Recorder struct {
	journal Journal
	timeout time.Duration
	ch      chan models.Event
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
	failed  atomic.Int64
}

func NewRecorder(journal Journal, buffer int, timeout time.Duration) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Recorder{journal: journal, timeout: timeout, ch: make(chan models.Event, buffer)}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for ev := range r.ch {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			err := r.journal.Append(ctx, ev)
			cancel()
			if err != nil {
				r.failed.Add(1)
				logg.Error("journal", "Failed to record event", err, zap.String("type", string(ev.Type)))
			}
		}
	}()
	return r
}

func (r *Recorder) Emit(ev models.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.ch <- ev:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) Dropped() int64 { return r.dropped.Load() }
func (r *Recorder) Failed() int64  { return r.failed.Load() }

// Close drains pending events. The journal itself stays open.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	r.wg.Wait()
}
