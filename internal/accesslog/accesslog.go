// Package accesslog ships one message per completed request to Kafka,
// keyed by request ID so messages from the same connection aren't
// required to land on the same partition.
package accesslog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Entry is one completed request, the unit accesslog ships.
type Entry struct {
	RequestID   string    `json:"request_id"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	Status      int       `json:"status"`
	PeerAddress string    `json:"peer_address"`
	DurationMs  int64     `json:"duration_ms"`
	At          time.Time `json:"at"`
}

// Sink publishes Entries asynchronously so logging a completed request
// never adds latency to the connection that produced it.
type Sink struct {
	writer *kafka.Writer
}

// NewSink builds a Sink against the given brokers and topic, batching for
// throughput rather than flushing every entry individually.
func NewSink(brokers []string, topic string) *Sink {
	return &Sink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 100 * time.Millisecond,
			BatchBytes:   1 << 20,
			Compression:  compress.Snappy,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  3,
		},
	}
}

// Publish enqueues one access-log entry. It never blocks on broker
// acknowledgement since the writer is async; a failure is only visible on
// the writer's internal error channel, which callers that care can wire
// via kafka.Writer.Completion.
func (s *Sink) Publish(ctx context.Context, e Entry) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("accesslog: marshal entry: %w", err)
	}
	msg := kafka.Message{Key: []byte(e.RequestID), Value: value}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("accesslog: publish: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
