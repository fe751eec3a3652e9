package kafka

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// Dead-letter headers.
const (
	HeaderOriginalTopic = "original_topic"
	HeaderError         = "error_message"
	HeaderAttempts      = "attempts"
)

// RetryConfig defines redelivery of failed messages. Backoff doubles up to
// MaxRetryBackoff.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig holds group reader settings. Concurrency readers join the
// same group, so partitions are spread across them.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topic           string
	AutoOffsetReset string
	Concurrency     int
	Retry           RetryConfig
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerOption customises a Consumer.
type ConsumerOption func(*Consumer)

// WithRetryable sets the predicate deciding whether a handler error is
// worth retrying. Errors it rejects go to the dead-letter topic at once.
func WithRetryable(fn func(error) bool) ConsumerOption {
	return func(c *Consumer) { c.retryable = fn }
}

// WithDeadLetter sets the publisher used for exhausted messages.
func WithDeadLetter(p Publisher) ConsumerOption {
	return func(c *Consumer) { c.deadLetter = p }
}

func WithConsumerMetrics(m *prometheus.AppMetrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// Consumer fetches messages, runs the handler with retries, dead-letters
// what still fails, and commits every message it has finished with.
type Consumer struct {
	readers    []ReaderInterface
	cfg        ConsumerConfig
	handler    Handler
	deadLetter Publisher
	retryable  func(error) bool
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
	running    atomic.Bool
}

func NewConsumer(cfg ConsumerConfig, handler Handler, logger logging.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	start := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		start = kafka.LastOffset
	}
	readers := make([]ReaderInterface, cfg.Concurrency)
	for i := range readers {
		readers[i] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			GroupID:        cfg.GroupID,
			Topic:          cfg.Topic,
			MinBytes:       1,
			MaxBytes:       16 << 20,
			MaxWait:        time.Second,
			StartOffset:    start,
			SessionTimeout: 30 * time.Second,
		})
	}
	return newConsumer(cfg, readers, handler, logger, opts...), nil
}

func newConsumer(cfg ConsumerConfig, readers []ReaderInterface, handler Handler, logger logging.Logger, opts ...ConsumerOption) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Consumer{
		readers:   readers,
		cfg:       cfg,
		handler:   handler,
		retryable: func(error) bool { return true },
		metrics:   prometheus.NewNopMetrics(),
		logger:    logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run consumes until ctx is cancelled or a commit fails.
func (c *Consumer) Run(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.logger.Info("kafka consumer started",
		logging.String("topic", c.cfg.Topic),
		logging.String("group", c.cfg.GroupID),
		logging.Int("readers", len(c.readers)))

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range c.readers {
		r, worker := r, strconv.Itoa(i)
		g.Go(func() error { return c.loop(ctx, r, worker) })
	}
	err := g.Wait()
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Consumer) loop(ctx context.Context, r ReaderInterface, worker string) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("fetch failed", logging.String("reader", worker), logging.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		c.metrics.WorkerActiveJobs.WithLabelValues(worker).Inc()
		c.process(ctx, fromKafka(m))
		c.metrics.WorkerActiveJobs.WithLabelValues(worker).Dec()

		if ctx.Err() != nil {
			// Leave the message uncommitted for redelivery.
			return ctx.Err()
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			return errors.Wrap(err, errors.ErrCodeMessageQueue, "commit failed")
		}
	}
}

// process runs the handler with retries and dead-letters the message when
// they are exhausted. It reports whether the handler eventually succeeded.
func (c *Consumer) process(ctx context.Context, msg *Message) bool {
	label := msg.Headers[HeaderKind]
	if label == "" {
		label = "unknown"
	}
	backoff := c.cfg.Retry.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := c.cfg.Retry.MaxRetryBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	attempts := 0
	var err error
	for {
		attempts++
		if err = c.handler(ctx, msg); err == nil {
			return true
		}
		if attempts > c.cfg.Retry.MaxRetries || !c.retryable(err) || ctx.Err() != nil {
			break
		}
		c.metrics.JobRetriesTotal.WithLabelValues(label).Inc()
		c.logger.Warn("handler failed, retrying",
			logging.Int64("offset", msg.Offset),
			logging.Int("attempt", attempts),
			logging.Duration("backoff", backoff),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	c.logger.Error("message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("attempts", attempts),
		logging.Error(err))
	if ctx.Err() == nil {
		c.sendToDeadLetter(ctx, msg, err, attempts, label)
	}
	return false
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *Message, cause error, attempts int, label string) {
	if c.deadLetter == nil || c.cfg.Retry.DeadLetterTopic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderError] = cause.Error()
	headers[HeaderAttempts] = strconv.Itoa(attempts)

	err := c.deadLetter.Publish(ctx, &ProducerMessage{
		Topic:   c.cfg.Retry.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		c.logger.Error("failed to send to dead-letter topic", logging.Error(err))
		return
	}
	c.metrics.DeadLettersTotal.WithLabelValues(label).Inc()
}

// Close closes every reader. Call it after Run has returned.
func (c *Consumer) Close() error {
	var first error
	for _, r := range c.readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.logger.Info("kafka consumer closed", logging.String("topic", c.cfg.Topic))
	return first
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "auto offset reset must be earliest or latest")
	}
	if cfg.Retry.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	return nil
}
