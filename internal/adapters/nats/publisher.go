package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

// ErrDisabled is returned by every publish on a nil Publisher, so a
// deployment without a broker degrades to skipped events.
var ErrDisabled = errors.New("events disabled")

// Subject prefixes shared by the publisher and the durable consumers.
const (
	subjectQuotePrefix       = "pricing.quote."
	subjectRulePrefix        = "pricing.rule."
	subjectMeasurementPrefix = "measurement.completed."
)

func quoteSubject(businessID string) string { return subjectQuotePrefix + businessID }
func ruleSubject(ruleID string) string      { return subjectRulePrefix + ruleID }
func measurementSubject(businessID string) string {
	return subjectMeasurementPrefix + businessID
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
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
			Name:      "PRICING_EVENTS",
			Subjects:  []string{"pricing.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "MEASUREMENT_EVENTS",
			Subjects:  []string{"measurement.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishQuotePriced(ctx context.Context, result *domain.PricingResult, businessID string) error {
	if p == nil || p.js == nil {
		return ErrDisabled
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(quoteSubject(businessID), data)
	return err
}

func (p *Publisher) PublishRuleApplied(ctx context.Context, app *domain.RuleApplication) error {
	if p == nil || p.js == nil {
		return ErrDisabled
	}
	data, err := json.Marshal(app)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ruleSubject(app.RuleID), data)
	return err
}

func (p *Publisher) PublishMeasurementCompleted(ctx context.Context, m *domain.MeasurementResult) error {
	if p == nil || p.js == nil {
		return ErrDisabled
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(measurementSubject(m.BusinessID), data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
