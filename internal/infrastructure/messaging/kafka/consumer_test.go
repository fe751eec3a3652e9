package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// queueReader serves a fixed list of messages and then blocks.
type queueReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) Close() error {
	r.closed = true
	return nil
}

func (r *queueReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*ProducerMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg *ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "rinchi-worker",
		Topic:   "rinchi.job.requested",
		Retry: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			DeadLetterTopic: "rinchi.job.dead_letter",
		},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(testConsumerConfig()))

	for _, mutate := range []func(*ConsumerConfig){
		func(c *ConsumerConfig) { c.Brokers = nil },
		func(c *ConsumerConfig) { c.GroupID = "" },
		func(c *ConsumerConfig) { c.Topic = "" },
		func(c *ConsumerConfig) { c.AutoOffsetReset = "middle" },
		func(c *ConsumerConfig) { c.Retry.MaxRetries = -1 },
	} {
		cfg := testConsumerConfig()
		mutate(&cfg)
		assert.True(t, errors.IsValidation(ValidateConsumerConfig(cfg)))
	}
}

func runUntil(t *testing.T, c *Consumer, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	require.Eventually(t, done, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errc)
}

func TestConsumer_CommitsHandledMessages(t *testing.T) {
	r := &queueReader{msgs: []kafka.Message{
		{Topic: "rinchi.job.requested", Offset: 7, Value: []byte("a")},
		{Topic: "rinchi.job.requested", Offset: 8, Value: []byte("b")},
	}}
	var mu sync.Mutex
	var seen []string
	c := newConsumer(testConsumerConfig(), []ReaderInterface{r}, func(_ context.Context, msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(msg.Value))
		return nil
	}, nil)

	runUntil(t, c, func() bool { return len(r.commits()) == 2 })
	assert.Equal(t, []int64{7, 8}, r.commits())
	assert.Equal(t, []string{"a", "b"}, seen)

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
}

func TestConsumer_RetryThenSucceed(t *testing.T) {
	r := &queueReader{msgs: []kafka.Message{{Offset: 1, Value: []byte("x")}}}
	dl := &recordingPublisher{}
	attempts := 0
	c := newConsumer(testConsumerConfig(), []ReaderInterface{r}, func(context.Context, *Message) error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		return nil
	}, nil, WithDeadLetter(dl))

	runUntil(t, c, func() bool { return len(r.commits()) == 1 })
	assert.Equal(t, 3, attempts)
	assert.Empty(t, dl.msgs)
}

func TestConsumer_DeadLettersAfterRetries(t *testing.T) {
	col, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(col)

	r := &queueReader{msgs: []kafka.Message{{
		Topic:   "rinchi.job.requested",
		Offset:  3,
		Key:     []byte("job-9"),
		Value:   []byte("payload"),
		Headers: []kafka.Header{{Key: HeaderKind, Value: []byte("compute")}},
	}}}
	dl := &recordingPublisher{}
	attempts := 0
	c := newConsumer(testConsumerConfig(), []ReaderInterface{r}, func(context.Context, *Message) error {
		attempts++
		return stderrors.New("boom")
	}, nil, WithDeadLetter(dl), WithConsumerMetrics(m))

	runUntil(t, c, func() bool { return len(r.commits()) == 1 })
	assert.Equal(t, 3, attempts)
	require.Len(t, dl.msgs, 1)
	got := dl.msgs[0]
	assert.Equal(t, "rinchi.job.dead_letter", got.Topic)
	assert.Equal(t, "job-9", string(got.Key))
	assert.Equal(t, "payload", string(got.Value))
	assert.Equal(t, "rinchi.job.requested", got.Headers[HeaderOriginalTopic])
	assert.Equal(t, "boom", got.Headers[HeaderError])
	assert.Equal(t, "3", got.Headers[HeaderAttempts])
	assert.Equal(t, "compute", got.Headers[HeaderKind])
}

func TestConsumer_PermanentErrorsSkipRetries(t *testing.T) {
	r := &queueReader{msgs: []kafka.Message{{Offset: 1, Value: []byte("x")}}}
	dl := &recordingPublisher{}
	attempts := 0
	c := newConsumer(testConsumerConfig(), []ReaderInterface{r}, func(context.Context, *Message) error {
		attempts++
		return errors.NewFormatError("bad file")
	}, nil, WithDeadLetter(dl), WithRetryable(func(err error) bool { return !errors.IsFormat(err) }))

	runUntil(t, c, func() bool { return len(r.commits()) == 1 })
	assert.Equal(t, 1, attempts)
	assert.Len(t, dl.msgs, 1)
}

func TestConsumer_AlreadyRunning(t *testing.T) {
	c := newConsumer(testConsumerConfig(), nil, nil, nil)
	c.running.Store(true)
	assert.Equal(t, ErrAlreadyRunning, c.Run(context.Background()))
}
