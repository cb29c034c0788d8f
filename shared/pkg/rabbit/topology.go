package rabbit

import amqp "github.com/rabbitmq/amqp091-go"

const (
	ExchangeEvents = "shop.events"
	ExchangeRetry  = "shop.retry"
	ExchangeDLX    = "shop.dlx"
)

func DeclareBase(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeEvents, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeRetry, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeDLX, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	return nil
}

type QueueSpec struct {
	Name     string
	BindKeys []string // routing keys on ExchangeEvents
	DLQKey   string
}

func DeclareQueueWithDLQ(ch *amqp.Channel, spec QueueSpec) error {
	dlqName := spec.Name + ".dlq"
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlqName, spec.DLQKey, ExchangeDLX, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLX,
		"x-dead-letter-routing-key": spec.DLQKey,
	}
	if _, err := ch.QueueDeclare(spec.Name, true, false, false, false, args); err != nil {
		return err
	}
	for _, key := range spec.BindKeys {
		if err := ch.QueueBind(spec.Name, key, ExchangeEvents, false, nil); err != nil {
			return err
		}
	}
	return nil
}

// DeclareRetryQueue creates a queue bound to ExchangeRetry with
// "<service>.<routingKey>". After ttlMs the message dead-letters back to
// ExchangeEvents with the original routing key.
func DeclareRetryQueue(ch *amqp.Channel, service, routingKey string, ttlMs int) error {
	name := service + ".retry." + routingKey
	args := amqp.Table{
		"x-message-ttl":             int32(ttlMs),
		"x-dead-letter-exchange":    ExchangeEvents,
		"x-dead-letter-routing-key": routingKey,
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(name, RetryKey(service, routingKey), ExchangeRetry, false, nil)
}

func RetryKey(service, routingKey string) string { return service + "." + routingKey }

// DeclareConsumer declares the work queue, its DLQ and one retry queue per
// bound key. Wildcard keys get no retry queue.
func DeclareConsumer(ch *amqp.Channel, service string, spec QueueSpec, retryTTLms int) error {
	if err := DeclareQueueWithDLQ(ch, spec); err != nil {
		return err
	}
	for _, key := range spec.BindKeys {
		if isWildcard(key) {
			continue
		}
		if err := DeclareRetryQueue(ch, service, key, retryTTLms); err != nil {
			return err
		}
	}
	return nil
}

func isWildcard(key string) bool {
	for _, r := range key {
		if r == '*' || r == '#' {
			return true
		}
	}
	return false
}
