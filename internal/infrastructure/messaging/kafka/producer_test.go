package kafka

import (
	"bytes"
	"context"
	"sync"
	"testing"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []segkafka.Message
	failWith error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWith != nil {
		return w.failWith
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []segkafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]segkafka.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

func TestPublish(t *testing.T) {
	writer := &fakeWriter{}
	p := NewProducerWithWriter(writer, "apiserver", logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   TopicJobEnqueued,
		Key:     []byte("sh-1"),
		Value:   []byte(`{"job_id":"j1"}`),
		Headers: map[string]string{"event_type": "job.enqueued"},
	})
	require.NoError(t, err)

	msgs := writer.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, TopicJobEnqueued, msgs[0].Topic)
	assert.Equal(t, []byte("sh-1"), msgs[0].Key)
	assert.False(t, msgs[0].Time.IsZero())
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, "event_type", msgs[0].Headers[0].Key)

	sent, failed, _ := p.GetMetrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
}

func TestPublishValidation(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, "apiserver", logging.NewNopLogger())
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, &ProducerMessage{Value: []byte("x")}))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: TopicJobEnqueued}))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{
		Topic: TopicJobEnqueued,
		Value: bytes.Repeat([]byte("a"), maxMessageBytes+1),
	}))
}

func TestPublishAfterClose(t *testing.T) {
	writer := &fakeWriter{}
	p := NewProducerWithWriter(writer, "apiserver", logging.NewNopLogger())

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
	require.NoError(t, p.Close(), "close is idempotent")

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic: TopicJobEnqueued,
		Value: []byte("x"),
	})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestPublishEvent(t *testing.T) {
	writer := &fakeWriter{}
	p := NewProducerWithWriter(writer, "apiserver", logging.NewNopLogger())

	payload := JobEnqueuedPayload{
		JobID:           "j1",
		SearchHistoryID: "sh-1",
		ReferenceNumber: "US111A",
		TenantID:        "t1",
		ProjectID:       "p1",
	}
	require.NoError(t, p.PublishEvent(context.Background(),
		TopicJobEnqueued, "job.enqueued", "sh-1", payload))

	msgs := writer.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("sh-1"), msgs[0].Key)

	env, err := MessageToEventEnvelope(&Message{Value: msgs[0].Value})
	require.NoError(t, err)
	assert.Equal(t, "job.enqueued", env.EventType)
	assert.Equal(t, "apiserver", env.Source)

	var decoded JobEnqueuedPayload
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, payload.JobID, decoded.JobID)
	assert.Equal(t, payload.ReferenceNumber, decoded.ReferenceNumber)
}

//Personal.AI order the ending
