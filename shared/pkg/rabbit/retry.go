package rabbit

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrRetryScheduled = errors.New("scheduled retry")
	ErrSentToDLQ      = errors.New("max attempts reached -> dlq")
)

func GetAttempts(h amqp.Table) int32 {
	if h == nil {
		return 0
	}
	v, ok := h["x-attempts"]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int32:
		return t
	case int64:
		return int32(t)
	case int:
		return int32(t)
	case float64:
		return int32(t)
	default:
		return 0
	}
}

// RetryOrDLQ republishes the body to the retry exchange under
// "<service>.<routingKey>" with x-attempts+1, or to the DLX once attempts
// reach maxAttempts. The original delivery is acked after a successful
// publish and nacked with requeue when the publish fails.
func RetryOrDLQ(ctx context.Context, d amqp.Delivery, service string, maxAttempts int32, retryPub, dlqPub Sender, dlqKey string) error {
	attempts := GetAttempts(d.Headers)

	pubCtx, cancel := WithTimeout(ctx)
	defer cancel()

	if attempts >= maxAttempts {
		if err := dlqPub.Publish(pubCtx, dlqKey, d.Body, amqp.Table{"x-attempts": attempts, "x-routing-key": d.RoutingKey}); err != nil {
			_ = d.Nack(false, true)
			return err
		}
		_ = d.Ack(false)
		return ErrSentToDLQ
	}

	if err := retryPub.Publish(pubCtx, RetryKey(service, d.RoutingKey), d.Body, amqp.Table{"x-attempts": attempts + 1}); err != nil {
		_ = d.Nack(false, true)
		return err
	}
	_ = d.Ack(false)
	return ErrRetryScheduled
}

// ToDLQ dead-letters without retrying; used for poison messages.
func ToDLQ(ctx context.Context, d amqp.Delivery, service string, retryPub, dlqPub Sender, dlqKey string) error {
	return RetryOrDLQ(ctx, d, service, 0, retryPub, dlqPub, dlqKey)
}
