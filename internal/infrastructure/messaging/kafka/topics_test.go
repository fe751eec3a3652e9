package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	created    []kafka.TopicConfig
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if len(topics) == 1 && topics[0] == "present" {
		return []kafka.Partition{{Topic: "present"}}, nil
	}
	return nil, stderrors.New("unknown topic")
}

func (m *mockKafkaConn) Close() error { return nil }

func TestEnvelopeRoundTrip(t *testing.T) {
	in := JobRequested{JobID: "j1", Kind: "compute", InputKey: "in/a.rxn", ForceEquilibrium: true}
	env, err := NewEventEnvelope(EventJobRequested, "apiserver", in)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, env.SchemaVersion)
	assert.NotEmpty(t, env.EventID)

	pm, err := env.ToMessage("rinchi.job.requested", "j1", map[string]string{HeaderKind: "compute"})
	require.NoError(t, err)
	assert.Equal(t, EventJobRequested, pm.Headers[HeaderEventType])
	assert.Equal(t, "compute", pm.Headers[HeaderKind])

	back, err := MessageToEventEnvelope(&Message{Value: pm.Value})
	require.NoError(t, err)
	var out JobRequested
	require.NoError(t, back.DecodePayload(&out))
	assert.Equal(t, in, out)
}

func TestMessageToEventEnvelope_Errors(t *testing.T) {
	_, err := MessageToEventEnvelope(&Message{})
	assert.True(t, errors.IsValidation(err))

	_, err = MessageToEventEnvelope(&Message{Value: []byte("{not json")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))

	env := &EventEnvelope{}
	assert.Error(t, env.DecodePayload(&JobRequested{}))
}

func TestJobTopics(t *testing.T) {
	cfg := config.Default().Kafka
	topics := JobTopics(cfg)
	require.Len(t, topics, 3)
	assert.Equal(t, config.DefaultJobTopic, topics[0].Name)
	assert.Equal(t, config.DefaultResultTopic, topics[1].Name)
	assert.Equal(t, config.DefaultDeadLetterTopic, topics[2].Name)
}

func TestEnsureTopics(t *testing.T) {
	conn := &mockKafkaConn{createFunc: func(topics ...kafka.TopicConfig) error {
		if topics[0].Topic == "exists" {
			return kafka.TopicAlreadyExists
		}
		return nil
	}}
	m := &TopicManager{conn: conn, logger: logging.NewNopLogger()}

	err := m.EnsureTopics(context.Background(), []TopicConfig{
		{Name: "fresh", NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 1000},
		{Name: "exists", NumPartitions: 1, ReplicationFactor: 1},
	})
	require.NoError(t, err)
	require.Len(t, conn.created, 2)
	assert.Equal(t, []kafka.ConfigEntry{{ConfigName: "retention.ms", ConfigValue: "1000"}}, conn.created[0].ConfigEntries)

	err = m.EnsureTopics(context.Background(), []TopicConfig{{Name: "bad"}})
	assert.True(t, errors.IsValidation(err))

	conn.createFunc = func(...kafka.TopicConfig) error { return stderrors.New("not controller") }
	err = m.EnsureTopics(context.Background(), []TopicConfig{{Name: "x", NumPartitions: 1, ReplicationFactor: 1}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessageQueue))

	assert.True(t, m.TopicExists("present"))
	assert.False(t, m.TopicExists("absent"))
}
