package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/metrics"
)

const (
	headerEventType = "event_type"
	headerEventID   = "event_id"
)

var ErrProducerClosed = errors.New("producer is closed")

// ProducerConfig configures the dashboard event producer. Events of both
// aggregates go to a single topic and are told apart by the event_type header.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	BatchSize    int
	Async        bool
	Logger       zerolog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	closed atomic.Bool
	logger zerolog.Logger
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg = withDefaults(cfg)

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		BatchSize:    cfg.BatchSize,
		Async:        cfg.Async,
	}
	return newProducer(w, cfg.Topic, cfg.Logger), nil
}

func newProducer(w messageWriter, topic string, logger zerolog.Logger) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
		logger: logger.With().Str("component", "kafka_producer").Str("topic", topic).Logger(),
	}
}

func validateConfig(cfg ProducerConfig) error {
	var errs []error
	if len(cfg.Brokers) == 0 {
		errs = append(errs, errors.New("brokers list is empty"))
	}
	if cfg.Topic == "" {
		errs = append(errs, errors.New("topic is empty"))
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, errors.New("write_timeout cannot be negative"))
	}
	if cfg.BatchSize < 0 {
		errs = append(errs, errors.New("batch_size cannot be negative"))
	}
	return errors.Join(errs...)
}

func withDefaults(cfg ProducerConfig) ProducerConfig {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1
	}
	return cfg
}

// PublishEvent serializes a domain event and writes it keyed by the aggregate
// id, so all events of one media item or location land on one partition.
func (p *Producer) PublishEvent(ctx context.Context, event models.DomainEvent) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(event.EventType(), "error").Inc()
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafkago.Header{
			{Key: headerEventType, Value: []byte(event.EventType())},
			{Key: headerEventID, Value: []byte(event.EventID().String())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(event.EventType(), "error").Inc()
		return fmt.Errorf("kafka publish %s: %w", event.EventType(), err)
	}

	metrics.EventsPublished.WithLabelValues(event.EventType(), "ok").Inc()
	p.logger.Debug().
		Str("event_id", event.EventID().String()).
		Str("event_type", event.EventType()).
		Str("aggregate_id", event.AggregateID().String()).
		Msg("event published")
	return nil
}

func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("producer already closed")
	}
	return p.writer.Close()
}
