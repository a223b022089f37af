package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

const (
	durableRuleAudit   = "rule-audit-processor"
	durableQuoteLog    = "quote-log-processor"
	durableMeasurement = "measurement-processor"
)

// consumerFilters maps each durable consumer to the subject filter it
// drains. PRICING_EVENTS uses work-queue retention: a published subject
// not under any filter sits in the stream until MaxAge, so every
// publisher subject prefix must be covered here.
var consumerFilters = map[string]string{
	durableRuleAudit:   subjectRulePrefix + ">",
	durableQuoteLog:    subjectQuotePrefix + ">",
	durableMeasurement: subjectMeasurementPrefix + ">",
}

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing a NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeRuleApplications(ctx context.Context, handler func(ctx context.Context, app *domain.RuleApplication) error) error {
	sub, err := s.js.Subscribe(consumerFilters[durableRuleAudit], func(msg *nats.Msg) {
		var app domain.RuleApplication
		if err := json.Unmarshal(msg.Data, &app); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &app); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableRuleAudit),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeQuotePriced drains quote events off the work-queue pricing
// stream. The business ID rides on the subject, not the payload.
func (s *Subscriber) SubscribeQuotePriced(ctx context.Context, handler func(ctx context.Context, businessID string, result *domain.PricingResult) error) error {
	sub, err := s.js.Subscribe(consumerFilters[durableQuoteLog], func(msg *nats.Msg) {
		var result domain.PricingResult
		if err := json.Unmarshal(msg.Data, &result); err != nil {
			_ = msg.Nak()
			return
		}
		businessID := strings.TrimPrefix(msg.Subject, subjectQuotePrefix)
		if err := handler(ctx, businessID, &result); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableQuoteLog),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeMeasurements(ctx context.Context, handler func(ctx context.Context, m *domain.MeasurementResult) error) error {
	sub, err := s.js.Subscribe(consumerFilters[durableMeasurement], func(msg *nats.Msg) {
		var m domain.MeasurementResult
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &m); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableMeasurement),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
