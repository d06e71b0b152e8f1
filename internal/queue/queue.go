// Package queue wraps SQS publishing and the bounded-retry bookkeeping the
// workers share. Delivery is at-least-once; consumers stay idempotent and
// every message resolves to acknowledged, redelivered, or dead-lettered.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Sender defines the SQS operation a publisher needs.
type Sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends JSON messages to one queue.
type Publisher struct {
	SQS Sender
	URL string
}

// Publish marshals v and sends it.
func (p *Publisher) Publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.PublishRaw(ctx, string(body))
}

// PublishRaw sends a pre-serialized body. Dead-lettering uses this so the
// sink receives the message exactly as the worker saw it.
func (p *Publisher) PublishRaw(ctx context.Context, body string) error {
	if p == nil || p.URL == "" {
		return fmt.Errorf("publisher not configured")
	}
	_, err := p.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.URL),
		MessageBody: aws.String(body),
	})
	return err
}

// ReceiveCount returns the delivery attempt number for a message, starting
// at 1. Unparseable attributes count as a first delivery.
func ReceiveCount(msg events.SQSMessage) int {
	raw := msg.Attributes["ApproximateReceiveCount"]
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// TerminalError marks a processing failure that redelivery cannot fix. The
// worker records the failure on the owning record before returning it; the
// message is acknowledged rather than retried.
type TerminalError struct {
	Cause string
}

func (e *TerminalError) Error() string { return e.Cause }

// Terminal builds a TerminalError.
func Terminal(format string, args ...any) error {
	return &TerminalError{Cause: fmt.Sprintf(format, args...)}
}

// IsTerminal reports whether err is (or wraps) a TerminalError.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}
