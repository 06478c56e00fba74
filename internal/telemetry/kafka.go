// Package telemetry forwards recorded motion events to external consumers.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"power_windows/internal/config"
	"power_windows/internal/logger"
	"power_windows/internal/models"

	"github.com/segmentio/kafka-go"
)

const (
	batchTimeout = 10 * time.Millisecond
	writeTimeout = 2 * time.Second
)

var errNoBrokers = errors.New("kafka sink requires at least one broker")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each motion event as JSON, keyed by door so one door's
// events stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
}

func NewKafkaSink(cfg config.Kafka, log *logger.Logger) (*KafkaSink, error) {
	if !cfg.Enabled() {
		return nil, errNoBrokers
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: false,
	}
	return newKafkaSink(w, cfg.Topic, log), nil
}

func newKafkaSink(w messageWriter, topic string, log *logger.Logger) *KafkaSink {
	if log == nil {
		log = logger.NewNop()
	}
	return &KafkaSink{writer: w, topic: topic, log: log.With("component", "kafka_sink")}
}

func (s *KafkaSink) Publish(ctx context.Context, e models.MotionEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.EventID, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.Door),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	if err := s.writer.Close(); err != nil {
		s.log.Warnw("kafka_sink_close_failed", "topic", s.topic, "error", err)
		return err
	}
	return nil
}
