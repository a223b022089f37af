package natsadapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

// A nil *Publisher reaches the services as disabled events when the
// broker is unavailable at startup; publishes must degrade, not panic.
func TestNilPublisherDegrades(t *testing.T) {
	ctx := context.Background()
	var p *Publisher

	err := p.PublishQuotePriced(ctx, &domain.PricingResult{}, "biz-1")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("PublishQuotePriced on nil publisher: err = %v, want ErrDisabled", err)
	}
	err = p.PublishRuleApplied(ctx, &domain.RuleApplication{RuleID: "r1"})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("PublishRuleApplied on nil publisher: err = %v, want ErrDisabled", err)
	}
	err = p.PublishMeasurementCompleted(ctx, &domain.MeasurementResult{BusinessID: "biz-1"})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("PublishMeasurementCompleted on nil publisher: err = %v, want ErrDisabled", err)
	}
	p.Close()
}

// Every subject the publisher writes must fall under a durable consumer
// filter. The pricing stream is work-queue retention: an uncovered
// subject would hold its messages until MaxAge.
func TestPublishedSubjectsHaveConsumers(t *testing.T) {
	published := []string{
		quoteSubject("biz-1"),
		ruleSubject("rule-1"),
		measurementSubject("biz-1"),
	}

	for _, subject := range published {
		covered := 0
		for _, filter := range consumerFilters {
			prefix := strings.TrimSuffix(filter, ">")
			if strings.HasPrefix(subject, prefix) {
				covered++
			}
		}
		if covered != 1 {
			t.Errorf("subject %q covered by %d consumer filters, want exactly 1", subject, covered)
		}
	}
}

// Work-queue streams reject overlapping consumer filters; the pricing
// filters must stay disjoint.
func TestPricingConsumerFiltersDisjoint(t *testing.T) {
	rule := strings.TrimSuffix(consumerFilters[durableRuleAudit], ">")
	quote := strings.TrimSuffix(consumerFilters[durableQuoteLog], ">")

	if strings.HasPrefix(rule, quote) || strings.HasPrefix(quote, rule) {
		t.Errorf("pricing consumer filters overlap: %q vs %q", rule, quote)
	}
}
