package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commerce-service/internal/util"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	HeaderEventType     = "event-type"
	HeaderOriginalTopic = "original-topic"
	HeaderDeadLetter    = "dead-letter-reason"
)

// MessageWriter is the part of kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader is the part of kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewProducer creates a Kafka producer. The topic is chosen per message.
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer)
}

// NewProducerWithWriter creates a producer on top of an existing writer
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer, logger: util.GetLogger()}
}

// PublishEvent publishes an event as JSON. The key selects the partition and
// the event type travels in a header next to the trace context.
func (p *Producer) PublishEvent(ctx context.Context, topic, key, eventType string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := util.InjectTraceContext(ctx)
	headers[HeaderEventType] = eventType

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   eventBytes,
		Headers: toKafkaHeaders(headers),
		Time:    time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Debug("Published event",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.String("event_type", eventType))
	return nil
}

// DeadLetter copies msg to topic, keeping its key, payload and headers and
// recording where it came from and why it failed
func (p *Producer) DeadLetter(ctx context.Context, topic string, msg kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderDeadLetter, Value: []byte(cause.Error())},
	)

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write dead letter to %s: %w", topic, err)
	}
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consumer reads one topic as part of a consumer group and hands messages to
// a handler one at a time. The offset is committed once the handler succeeds
// or the message has been dead lettered.
type Consumer struct {
	reader      MessageReader
	topic       string
	dlqTopic    string
	deadLetters *Producer
	maxRetries  uint64
	newBackOff  func() backoff.BackOff
	logger      *zap.Logger
}

// ConsumerOption configures a Consumer
type ConsumerOption func(*Consumer)

// WithDeadLetter sends messages that keep failing to dlqTopic
func WithDeadLetter(producer *Producer, dlqTopic string) ConsumerOption {
	return func(c *Consumer) {
		c.deadLetters = producer
		c.dlqTopic = dlqTopic
	}
}

// WithMaxRetries bounds how often a failing message is retried
func WithMaxRetries(n int) ConsumerOption {
	return func(c *Consumer) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = uint64(n)
	}
}

// WithBackOff sets the delay policy between retries
func WithBackOff(newBackOff func() backoff.BackOff) ConsumerOption {
	return func(c *Consumer) {
		c.newBackOff = newBackOff
	}
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return NewConsumerWithReader(reader, topic, opts...)
}

// NewConsumerWithReader creates a consumer on top of an existing reader
func NewConsumerWithReader(reader MessageReader, topic string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:     reader,
		topic:      topic,
		maxRetries: 5,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
		logger: util.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Topic returns the topic the consumer reads
func (c *Consumer) Topic() string {
	return c.topic
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// StartConsuming consumes messages until ctx is cancelled
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting Kafka consumer", zap.String("topic", c.topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer context cancelled, stopping", zap.String("topic", c.topic))
				return ctx.Err()
			}
			c.logger.Error("Error fetching message", zap.String("topic", c.topic), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.process(ctx, msg, handler); err != nil {
			return err
		}
	}
}

// process handles one message and settles its offset. It only returns an
// error when ctx is cancelled, leaving the message uncommitted for redelivery.
// A message is never committed before it is either handled or dead lettered.
func (c *Consumer) process(ctx context.Context, msg kafka.Message, handler MessageHandler) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := handler(ctx, msg)
		if err != nil {
			c.logger.Warn("Error handling message",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	err := backoff.Retry(operation, policy)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil {
		if dlqErr := c.deadLetter(ctx, msg, err); dlqErr != nil {
			return dlqErr
		}
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Error committing message", zap.String("topic", msg.Topic), zap.Error(err))
	}
	return nil
}

// deadLetter keeps trying to publish msg to the dead letter topic until it
// succeeds or ctx is cancelled. Without a dead letter topic the message is dropped.
func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if c.deadLetters == nil {
		c.logger.Error("Dropping message, no dead letter topic configured",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Error(cause))
		return nil
	}

	publish := func() error {
		err := c.deadLetters.DeadLetter(ctx, c.dlqTopic, msg, cause)
		if err != nil {
			c.logger.Error("Failed to dead letter message", zap.String("topic", msg.Topic), zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(publish, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return err
	}

	util.MessagesDeadLetteredTotal.WithLabelValues(msg.Topic).Inc()
	c.logger.Error("Message moved to dead letter topic",
		zap.String("topic", msg.Topic),
		zap.String("dlq_topic", c.dlqTopic),
		zap.Int64("offset", msg.Offset),
		zap.Error(cause))
	return nil
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

func fromKafkaHeaders(headers []kafka.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
