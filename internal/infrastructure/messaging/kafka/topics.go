package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Headers set on job messages.
const (
	HeaderKind      = "kind"
	HeaderJobID     = "job_id"
	HeaderEventType = "event_type"
)

// Event types.
const (
	EventJobRequested = "job.requested"
	EventJobCompleted = "job.completed"
)

const schemaVersion = "v1"

// EventEnvelope wraps every payload published by the toolkit.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// JobRequested asks a worker to process one stored input file.
type JobRequested struct {
	JobID            string `json:"job_id"`
	Kind             string `json:"kind"`
	InputKey         string `json:"input_key"`
	Format           string `json:"format,omitempty"`
	ForceEquilibrium bool   `json:"force_equilibrium,omitempty"`
}

// JobCompleted reports the outcome of a job.
type JobCompleted struct {
	JobID      string    `json:"job_id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	OutputKey  string    `json:"output_key,omitempty"`
	ReactionID string    `json:"reaction_id,omitempty"`
	RInChI     string    `json:"rinchi,omitempty"`
	LongKey    string    `json:"long_key,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "event has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}

// ToMessage serialises the envelope. Messages sharing a key land on the
// same partition.
func (e *EventEnvelope) ToMessage(topic, key string, headers map[string]string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	h := map[string]string{HeaderEventType: e.EventType}
	for k, v := range headers {
		h[k] = v
	}
	return &ProducerMessage{Topic: topic, Key: []byte(key), Value: val, Headers: h, Timestamp: e.Timestamp}, nil
}

func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// JobTopics returns the request, completion and dead-letter topics.
func JobTopics(cfg config.KafkaConfig) []TopicConfig {
	const day = 24 * 3600 * 1000
	return []TopicConfig{
		{Name: cfg.JobTopic, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 7 * day},
		{Name: cfg.ResultTopic, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 7 * day},
		{Name: cfg.DeadLetterTopic, NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 30 * day},
	}
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueue, "failed to dial kafka")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// EnsureTopics creates the topics that do not exist yet.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, t := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Name == "" || t.NumPartitions <= 0 || t.ReplicationFactor <= 0 {
			return errors.Newf(errors.ErrCodeValidation, "invalid topic config %+v", t)
		}
		kc := kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.NumPartitions,
			ReplicationFactor: t.ReplicationFactor,
		}
		if t.RetentionMs > 0 {
			kc.ConfigEntries = append(kc.ConfigEntries, kafka.ConfigEntry{
				ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(t.RetentionMs, 10),
			})
		}
		err := m.conn.CreateTopics(kc)
		if err != nil && !stderrors.Is(err, kafka.TopicAlreadyExists) {
			return errors.Wrapf(err, errors.ErrCodeMessageQueue, "failed to create topic %s", t.Name)
		}
		if err == nil {
			m.logger.Info("topic ensured", logging.String("topic", t.Name))
		}
	}
	return nil
}

func (m *TopicManager) TopicExists(name string) bool {
	partitions, err := m.conn.ReadPartitions(name)
	return err == nil && len(partitions) > 0
}

func (m *TopicManager) Close() error { return m.conn.Close() }
