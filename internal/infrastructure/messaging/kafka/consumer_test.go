package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
)

type mockKafkaReader struct {
	msgs    []kafka.Message
	pos     int
	commits int
	fetchErr error
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.fetchErr != nil {
		return kafka.Message{}, m.fetchErr
	}
	if m.pos < len(m.msgs) {
		msg := m.msgs[m.pos]
		m.pos++
		return msg, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(context.Context, ...kafka.Message) error {
	m.commits++
	return nil
}

func (m *mockKafkaReader) Close() error { return nil }

func eventMessage(t *testing.T, e pill.Event) kafka.Message {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(e.Key()), Value: b}
}

func newTestConsumer(r ReaderInterface, group string) *Consumer {
	return &Consumer{
		reader: r,
		config: ConsumerConfig{Brokers: []string{"b:9092"}, Topic: "t", GroupID: group},
		logger: logging.NewNopLogger(),
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(ConsumerConfig{Brokers: []string{"b"}, Topic: "t"}))
	assert.Error(t, ValidateConsumerConfig(ConsumerConfig{Topic: "t"}))
	assert.Error(t, ValidateConsumerConfig(ConsumerConfig{Brokers: []string{"b"}}))
}

func TestConsume_DeliversAndSkipsGarbage(t *testing.T) {
	reader := &mockKafkaReader{msgs: []kafka.Message{
		eventMessage(t, pill.NewEvent(pill.EventIdentified, "M71", "Allopurinol")),
		{Value: []byte("not json")},
		eventMessage(t, pill.NewEvent(pill.EventExplained, "M71", "Allopurinol")),
	}}
	c := newTestConsumer(reader, "cli")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []pill.EventType
	err := c.Consume(ctx, func(_ context.Context, e pill.Event) error {
		got = append(got, e.Type)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []pill.EventType{pill.EventIdentified, pill.EventExplained}, got)
	assert.EqualValues(t, 3, c.Consumed())
	assert.EqualValues(t, 1, c.Skipped())
	assert.GreaterOrEqual(t, reader.commits, 2)
}

func TestConsume_HandlerErrorStops(t *testing.T) {
	reader := &mockKafkaReader{msgs: []kafka.Message{
		eventMessage(t, pill.NewEvent(pill.EventIdentified, "M71", "Allopurinol")),
	}}
	c := newTestConsumer(reader, "")

	boom := stderrors.New("boom")
	err := c.Consume(context.Background(), func(context.Context, pill.Event) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, reader.commits, "no commits without a group")
}

func TestConsume_FetchError(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{fetchErr: stderrors.New("leader not available")}, "")
	err := c.Consume(context.Background(), func(context.Context, pill.Event) error { return nil })
	assert.Error(t, err)
}

func TestConsume_AlreadyRunningAndClosed(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, "")
	c.running.Store(true)
	assert.ErrorIs(t, c.Consume(context.Background(), nil), ErrAlreadyRunning)

	c.running.Store(false)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Consume(context.Background(), nil), ErrConsumerClosed)
}

//Personal.AI order the ending
