package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRouteResults delivers route results computed by other producers.
// Undecodable payloads are terminated; handler errors are retried up to
// three deliveries.
func (s *Subscriber) SubscribeRouteResults(ctx context.Context, handler func(ctx context.Context, result *domain.RouteResult) error) error {
	sub, err := s.js.Subscribe(SubjectRouteResults, func(msg *nats.Msg) {
		result, err := DecodeRouteResult(msg.Data)
		if err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, result); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("route-results-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// DecodeRouteResult parses a route result message.
func DecodeRouteResult(data []byte) (*domain.RouteResult, error) {
	var result domain.RouteResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode route result: %w", err)
	}
	if result.Routes == nil {
		return nil, fmt.Errorf("decode route result: missing routes")
	}
	return &result, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
