// Package kafka publishes analysis snapshots to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-insight-service/internal/config"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const (
	headerKind       = "kind"
	headerProvenance = "provenance"
	headerTimestamp  = "timestamp"
)

// Publisher produces snapshot messages. It implements analysis.SnapshotPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one snapshot keyed by its ID.
func (p *Publisher) Publish(ctx context.Context, s domain.Snapshot) error {
	msg, err := serializeToMessage(s)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", s.ID, err)
	}
	p.logger.Debug("snapshot published", "id", s.ID, "kind", s.Kind, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Snapshot into a Kafka message.
func serializeToMessage(s domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerKind, Value: []byte(s.Kind)},
			{Key: headerProvenance, Value: []byte(s.Provenance)},
			{Key: headerTimestamp, Value: []byte(s.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}

// DecodeSnapshot is the inverse of Publish for consumers of the topic.
func DecodeSnapshot(msg kafkago.Message) (domain.Snapshot, error) {
	var s domain.Snapshot
	if err := json.Unmarshal(msg.Value, &s); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot at offset %d: %w", msg.Offset, err)
	}
	return s, nil
}
