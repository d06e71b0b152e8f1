package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdraft/photoblog-backend/internal/queue"
)

type fakeSender struct {
	sent []sqs.SendMessageInput
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, *params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func record(id, body string, receiveCount string) events.SQSMessage {
	return events.SQSMessage{
		MessageId:  id,
		Body:       body,
		Attributes: map[string]string{"ApproximateReceiveCount": receiveCount},
	}
}

func TestReceiveCount(t *testing.T) {
	assert.Equal(t, 3, queue.ReceiveCount(record("m", "", "3")))
	assert.Equal(t, 1, queue.ReceiveCount(record("m", "", "")))
	assert.Equal(t, 1, queue.ReceiveCount(record("m", "", "garbage")))
	assert.Equal(t, 1, queue.ReceiveCount(record("m", "", "0")))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, queue.IsTerminal(queue.Terminal("no inputs")))
	assert.False(t, queue.IsTerminal(errors.New("transient")))
	assert.False(t, queue.IsTerminal(nil))
}

func TestPublisher_Publish(t *testing.T) {
	sender := &fakeSender{}
	pub := &queue.Publisher{SQS: sender, URL: "https://sqs/q"}

	err := pub.Publish(context.Background(), map[string]string{"run_id": "r1"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "https://sqs/q", aws.ToString(sender.sent[0].QueueUrl))
	assert.JSONEq(t, `{"run_id":"r1"}`, aws.ToString(sender.sent[0].MessageBody))
}

func TestPublisher_Unconfigured(t *testing.T) {
	var pub *queue.Publisher
	assert.Error(t, pub.PublishRaw(context.Background(), "x"))
	assert.Error(t, (&queue.Publisher{}).PublishRaw(context.Background(), "x"))
}

func TestConsumer_SuccessAcks(t *testing.T) {
	c := &queue.Consumer{
		Name:    "w",
		Ceiling: 5,
		Process: func(ctx context.Context, body string, attempt int) error { return nil },
	}

	resp, err := c.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{record("m1", "{}", "1")}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
}

func TestConsumer_RetryableUnderCeilingRedelivers(t *testing.T) {
	c := &queue.Consumer{
		Name:    "w",
		Ceiling: 5,
		Process: func(ctx context.Context, body string, attempt int) error { return errors.New("transient") },
	}

	resp, err := c.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{record("m1", "{}", "2")}})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m1", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestConsumer_TerminalAcksWithoutDeadLetter(t *testing.T) {
	sink := &fakeSender{}
	c := &queue.Consumer{
		Name:       "w",
		Ceiling:    5,
		DeadLetter: &queue.Publisher{SQS: sink, URL: "https://sqs/dlq"},
		Process: func(ctx context.Context, body string, attempt int) error {
			return queue.Terminal("no usable inputs")
		},
	}

	resp, err := c.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{record("m1", "{}", "1")}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Empty(t, sink.sent)
}

func TestConsumer_ExhaustionDeadLettersRawBody(t *testing.T) {
	sink := &fakeSender{}
	var exhaustedBody string
	c := &queue.Consumer{
		Name:       "w",
		Ceiling:    3,
		DeadLetter: &queue.Publisher{SQS: sink, URL: "https://sqs/dlq"},
		Process: func(ctx context.Context, body string, attempt int) error {
			return errors.New("still failing")
		},
		OnExhausted: func(ctx context.Context, body string, cause error) {
			exhaustedBody = body
		},
	}

	resp, err := c.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{record("m1", `{"run_id":"r1"}`, "3")}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Equal(t, `{"run_id":"r1"}`, exhaustedBody)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, `{"run_id":"r1"}`, aws.ToString(sink.sent[0].MessageBody))
}

func TestConsumer_MixedBatchReportsOnlyFailures(t *testing.T) {
	c := &queue.Consumer{
		Name:    "w",
		Ceiling: 5,
		Process: func(ctx context.Context, body string, attempt int) error {
			if body == "bad" {
				return errors.New("transient")
			}
			return nil
		},
	}

	resp, err := c.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		record("m1", "ok", "1"),
		record("m2", "bad", "1"),
		record("m3", "ok", "1"),
	}})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m2", resp.BatchItemFailures[0].ItemIdentifier)
}
