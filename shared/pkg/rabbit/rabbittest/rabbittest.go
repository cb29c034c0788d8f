// Package rabbittest provides in-memory stand-ins for broker plumbing in tests.
package rabbittest

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Acker records what happened to a delivery.
type Acker struct {
	mu      sync.Mutex
	Acked   int
	Nacked  int
	Requeue bool
}

func (a *Acker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Acked++
	return nil
}

func (a *Acker) Nack(tag uint64, multiple bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Nacked++
	a.Requeue = requeue
	return nil
}

func (a *Acker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

// Delivery builds a delivery whose ack/nack land on the returned Acker.
func Delivery(routingKey string, v any, headers amqp.Table) (amqp.Delivery, *Acker) {
	var body []byte
	switch t := v.(type) {
	case []byte:
		body = t
	case string:
		body = []byte(t)
	default:
		body, _ = json.Marshal(v)
	}
	a := &Acker{}
	return amqp.Delivery{
		Acknowledger: a,
		RoutingKey:   routingKey,
		Body:         body,
		Headers:      headers,
	}, a
}

type Message struct {
	RoutingKey string
	Body       []byte
	Headers    amqp.Table
}

// Sender collects published messages. Err, when set, is returned from Publish.
type Sender struct {
	mu   sync.Mutex
	Msgs []Message
	Err  error
}

func (s *Sender) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Msgs = append(s.Msgs, Message{RoutingKey: routingKey, Body: body, Headers: headers})
	return nil
}

func (s *Sender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.Msgs...)
}
