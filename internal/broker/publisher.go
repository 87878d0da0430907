package appkafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"example.com/timelinefeed/internal/logger"
	"example.com/timelinefeed/internal/models"
	"go.uber.org/zap"
)

var logg = logger.New()

// Publisher forwards engine events to Kafka from a single background
// goroutine. Emit never blocks: when the buffer is full the event is dropped
// and counted.
type Publisher struct {
	writer  KafkaWriter
	timeout time.Duration

	ch   chan models.Event
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.RWMutex // guards closed against sends on a closed ch
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewPublisher(writer KafkaWriter, buffer int, timeout time.Duration) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Publisher{
		writer:  writer,
		timeout: timeout,
		ch:      make(chan models.Event, buffer),
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop()
	}()
	return p
}

func (p *Publisher) Emit(ev models.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.ch <- ev:
	default:
		p.dropped.Add(1)
		logg.Error("broker", "Event buffer full, dropping event", nil, zap.String("type", string(ev.Type)))
	}
}

func (p *Publisher) loop() {
	for ev := range p.ch {
		msg, err := EncodeEvent(ev)
		if err != nil {
			p.failed.Add(1)
			logg.Error("broker", "Failed to encode event", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err = p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.failed.Add(1)
			logg.Error("broker", "Failed to write event to Kafka", err, zap.String("type", string(ev.Type)))
			continue
		}
		logg.Debug("broker", "Event published", zap.String("type", string(ev.Type)))
	}
}

// Dropped returns how many events were discarded because the buffer was full
// or the publisher was closed.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Failed returns how many events could not be encoded or written.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

// Close flushes buffered events and closes the underlying writer.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.ch)
		p.mu.Unlock()
		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}
