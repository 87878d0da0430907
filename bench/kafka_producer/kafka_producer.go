package main

import (
	"context"
	"flag"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	appkafka "example.com/timelinefeed/internal/broker"
	"example.com/timelinefeed/internal/models"
	"github.com/segmentio/kafka-go"
)

// Floods the event topic with message_posted events to measure how fast the
// journal worker drains it.
func main() {
	var total, batchSize, numWorkers, authors int
	var broker, topic string

	flag.IntVar(&total, "n", 100000, "total number of events to send")
	flag.IntVar(&batchSize, "batch", 100, "batch size for sending events")
	flag.IntVar(&numWorkers, "c", 4, "number of parallel goroutines")
	flag.IntVar(&authors, "authors", 100, "number of distinct authors (partition keys)")
	flag.StringVar(&broker, "broker", "localhost:29092", "Kafka broker")
	flag.StringVar(&topic, "topic", "timeline-events", "event topic")
	flag.Parse()

	if err := validateFlags(total, batchSize, numWorkers, authors); err != nil {
		fmt.Println(err)
		flag.Usage()
		os.Exit(2)
	}

	w := appkafka.NewKafkaWriter(appkafka.KafkaConfig{
		Brokers:      []string{broker},
		Topic:        topic,
		WriteTimeout: 10 * time.Second,
	})
	defer w.Close()

	start := time.Now()

	var successCount uint64
	var failCount uint64

	// Channel for feeding event indexes to worker goroutines
	jobs := make(chan int, total)
	var wg sync.WaitGroup

	flush := func(batch []kafka.Message) {
		if err := w.WriteMessages(context.Background(), batch...); err != nil {
			atomic.AddUint64(&failCount, uint64(len(batch)))
			fmt.Printf("write error: %v\n", err)
			return
		}
		atomic.AddUint64(&successCount, uint64(len(batch)))
	}

	// --- Start worker goroutines ---
	for wID := 0; wID < numWorkers; wID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make([]kafka.Message, 0, batchSize)

			for i := range jobs {
				now := time.Now()
				msg := &models.Message{
					ID:        models.MessageID(models.NewID()),
					Author:    models.UserID(fmt.Sprintf("bench-%d", i%authors)),
					Content:   fmt.Sprintf("kafka bench %d", i),
					Timestamp: now,
				}
				km, err := appkafka.EncodeEvent(models.Event{
					ID:         models.NewID(),
					Type:       models.EventMessagePosted,
					OccurredAt: now,
					Message:    msg,
				})
				if err != nil {
					atomic.AddUint64(&failCount, 1)
					fmt.Printf("encode error: %v\n", err)
					continue
				}

				batch = append(batch, km)
				if len(batch) >= batchSize {
					flush(batch)
					batch = batch[:0]
				}
			}

			// Send any remaining messages after finishing loop
			if len(batch) > 0 {
				flush(batch)
			}
		}()
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	// --- Benchmark results ---
	elapsed := time.Since(start)
	fmt.Printf("Total events: %d\n", total)
	fmt.Printf("Successful: %d, Failed: %d\n", successCount, failCount)
	fmt.Printf("Elapsed time: %s\n", elapsed)
	fmt.Printf("Throughput: %.2f msg/s\n", float64(successCount)/elapsed.Seconds())
}

func validateFlags(total, batchSize, numWorkers, authors int) error {
	switch {
	case total < 0:
		return errors.New("-n must not be negative")
	case batchSize <= 0:
		return errors.New("-batch must be positive")
	case numWorkers <= 0:
		return errors.New("-c must be positive")
	case authors <= 0:
		return errors.New("-authors must be positive")
	}
	return nil
}
