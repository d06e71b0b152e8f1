package queue

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
)

// ProcessFunc handles one message body. attempt is the delivery count,
// starting at 1; implementations may use it to skip work they know cannot
// succeed anymore.
type ProcessFunc func(ctx context.Context, body string, attempt int) error

// ExhaustFunc records a terminal failure on the owning record once the
// retry budget is spent. Best effort: a failed write here is logged, not
// retried, because the message is leaving the queue either way.
type ExhaustFunc func(ctx context.Context, body string, cause error)

// Consumer drives the per-message state machine for one queue: a message is
// acknowledged on success or terminal failure, redelivered while retryable
// failures stay under the ceiling, and dead-lettered once the ceiling is
// reached.
type Consumer struct {
	Name        string // log prefix
	Ceiling     int    // max delivery attempts before dead-lettering
	DeadLetter  *Publisher
	Process     ProcessFunc
	OnExhausted ExhaustFunc
}

// Handle processes an SQS batch, reporting partial failures so only the
// messages that need redelivery go back on the queue.
func (c *Consumer) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		attempt := ReceiveCount(rec)
		err := c.Process(ctx, rec.Body, attempt)
		switch {
		case err == nil:
			// acknowledged
		case IsTerminal(err):
			// The processor already recorded the failure; ack so the
			// message stops consuming capacity.
			log.Printf("%s: terminal failure on attempt %d: %v", c.Name, attempt, err)
		case attempt < c.Ceiling:
			log.Printf("%s: attempt %d/%d failed, redelivering: %v", c.Name, attempt, c.Ceiling, err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		default:
			log.Printf("%s: retries exhausted after attempt %d: %v", c.Name, attempt, err)
			if c.OnExhausted != nil {
				c.OnExhausted(ctx, rec.Body, err)
			}
			if c.DeadLetter != nil {
				if derr := c.DeadLetter.PublishRaw(ctx, rec.Body); derr != nil {
					log.Printf("%s: dead-letter publish failed: %v", c.Name, derr)
				}
			}
		}
	}
	return resp, nil
}
