package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// Subjects published and consumed by the service.
const (
	SubjectRouteUpdated         = "voltroute.route.updated"
	SubjectRouteResults         = "voltroute.route.results"
	SubjectNotificationsPrefix  = "voltroute.notifications."
	SubjectReachabilityResolved = "voltroute.reachability.resolved"

	// SubjectAll matches every event the service emits.
	SubjectAll = "voltroute.>"
)

// RouteUpdatedEvent is the payload of SubjectRouteUpdated. A nil route clears
// the shared state.
type RouteUpdatedEvent struct {
	Result  *domain.RouteResult           `json:"result"`
	Metrics *domain.SustainabilityMetrics `json:"metrics,omitempty"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "VOLTROUTE_EVENTS",
			Subjects:  []string{SubjectRouteUpdated, SubjectNotificationsPrefix + ">", SubjectReachabilityResolved},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "VOLTROUTE_ROUTE_RESULTS",
			Subjects:  []string{SubjectRouteResults},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// PublishRouteUpdated announces a new or cleared route.
func (p *Publisher) PublishRouteUpdated(ctx context.Context, result *domain.RouteResult, metrics *domain.SustainabilityMetrics) error {
	return p.publish(ctx, SubjectRouteUpdated, RouteUpdatedEvent{Result: result, Metrics: metrics})
}

// PublishNotification publishes on voltroute.notifications.<kind>.
func (p *Publisher) PublishNotification(ctx context.Context, n domain.Notification) error {
	return p.publish(ctx, SubjectNotificationsPrefix+string(n.Kind), n)
}

// PublishBestStation announces a resolved reachability query.
func (p *Publisher) PublishBestStation(ctx context.Context, result *domain.BestStationResult) error {
	return p.publish(ctx, SubjectReachabilityResolved, result)
}

// Conn exposes the connection for plain subscriptions such as the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("voltroute"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
