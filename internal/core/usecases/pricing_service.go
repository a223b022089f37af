package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/core/ports"
	"github.com/verdantlabs/verdant/internal/pkg/metrics"
)

// adjustmentEpsilon is the dollar threshold below which a rule's net
// effect is considered negligible and left out of the audit trail.
const adjustmentEpsilon = 0.001

// fixedPriceKeys is the order in which per-unit overrides are matched
// against service names. A fixed order keeps evaluation deterministic.
var fixedPriceKeys = []string{"lawn", "driveway", "sidewalk", "building"}

// PricingService evaluates a business's pricing rules against a quote.
//
// The top-level contract is fail-open: this sits in a quote-critical
// path, so any internal error returns the caller's original prices with
// an empty audit trail instead of propagating. A missing discount is
// preferable to a broken checkout.
type PricingService struct {
	rules  ports.PricingRuleRepository
	events ports.EventPublisher
}

// NewPricingService creates a new PricingService. The publisher may be
// nil; rule events are then skipped.
func NewPricingService(rules ports.PricingRuleRepository, events ports.EventPublisher) *PricingService {
	return &PricingService{rules: rules, events: events}
}

// Calculate applies the business's active rules to the quoted services
// and returns adjusted copies plus the audit trail. The input slice is
// never mutated. Applied rules have their usage counter incremented and
// an event published, both fire-and-forget.
func (s *PricingService) Calculate(ctx context.Context, req domain.PricingRequest) *domain.PricingResult {
	result := s.evaluate(ctx, req)

	for _, ar := range result.AppliedRules {
		if err := s.rules.IncrementAppliedCount(ctx, ar.RuleID); err != nil {
			slog.Warn("applied-count increment failed", "rule_id", ar.RuleID, "error", err)
		}
		if s.events != nil {
			app := &domain.RuleApplication{
				RuleID:     ar.RuleID,
				BusinessID: req.BusinessID,
				RuleType:   ar.RuleType,
				Adjustment: ar.Adjustment,
				AppliedAt:  time.Now().UTC(),
			}
			if err := s.events.PublishRuleApplied(ctx, app); err != nil {
				slog.Warn("rule-applied event publish failed", "rule_id", ar.RuleID, "error", err)
			}
		}
	}

	if s.events != nil {
		if err := s.events.PublishQuotePriced(ctx, result, req.BusinessID); err != nil {
			slog.Warn("quote-priced event publish failed", "business_id", req.BusinessID, "error", err)
		}
	}

	return result
}

// Preview runs the same evaluation with side effects disabled — no
// usage counters, no events — and reports what-if totals. The original
// total ignores any stored per-service totals and is recomputed from
// area × price per unit.
func (s *PricingService) Preview(ctx context.Context, req domain.PricingRequest) *domain.PricingPreview {
	result := s.evaluate(ctx, req)

	var original, adjusted float64
	for _, svc := range req.Services {
		original += svc.Area * svc.PricePerUnit
	}
	for _, svc := range result.Services {
		adjusted += svc.TotalPrice
	}

	return &domain.PricingPreview{
		PricingResult: *result,
		OriginalTotal: roundCents(original),
		AdjustedTotal: roundCents(adjusted),
		Delta:         roundCents(adjusted - original),
	}
}

// evaluate is the pure evaluation pass. It never returns an error and
// never panics through: any failure falls open to the original prices.
func (s *PricingService) evaluate(ctx context.Context, req domain.PricingRequest) (result *domain.PricingResult) {
	failOpen := &domain.PricingResult{
		Services:     cloneQuotes(req.Services),
		AppliedRules: []domain.AppliedRule{},
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pricing evaluation panicked, returning original prices",
				"business_id", req.BusinessID, "panic", fmt.Sprint(r))
			metrics.PricingFailOpens.Inc()
			result = failOpen
		}
	}()

	rules, err := s.rules.ListActive(ctx, req.BusinessID)
	if err != nil {
		slog.Error("pricing rule load failed, returning original prices",
			"business_id", req.BusinessID, "error", err)
		metrics.PricingFailOpens.Inc()
		return failOpen
	}

	services := cloneQuotes(req.Services)
	applied := []domain.AppliedRule{}

	// Per-service record of which rule types already fired, for the
	// stacking policy.
	appliedTypes := make([]map[domain.RuleType]bool, len(services))
	for i := range appliedTypes {
		appliedTypes[i] = make(map[domain.RuleType]bool)
	}

	for ri := range rules {
		rule := &rules[ri]
		if !ruleApplies(rule, req, services) {
			continue
		}

		var ruleDelta float64
		for i := range services {
			svc := &services[i]

			if rule.Type == domain.RuleService && !serviceMatches(rule, svc) {
				continue
			}
			// One non-stackable rule per type per service; stackable
			// rules (customer discounts by default) may compound.
			if !rule.Stackable && appliedTypes[i][rule.Type] {
				continue
			}

			ruleDelta += applyAdjustment(svc, &rule.Pricing)
			appliedTypes[i][rule.Type] = true
		}

		if math.Abs(ruleDelta) > adjustmentEpsilon {
			applied = append(applied, domain.AppliedRule{
				RuleID:      rule.ID,
				RuleName:    rule.Name,
				RuleType:    rule.Type,
				Adjustment:  roundCents(ruleDelta),
				Description: rule.Description,
			})
		}
	}

	return &domain.PricingResult{Services: services, AppliedRules: applied}
}

// ruleApplies runs the type-specific applicability predicate.
func ruleApplies(rule *domain.PricingRule, req domain.PricingRequest, services []domain.ServiceQuote) bool {
	switch rule.Type {
	case domain.RuleZone:
		for _, zip := range rule.Conditions.ZipCodes {
			if strings.EqualFold(zip, req.ZipCode) {
				return true
			}
		}
		return false

	case domain.RuleService:
		for i := range services {
			if serviceMatches(rule, &services[i]) {
				return true
			}
		}
		return false

	case domain.RuleCustomer:
		for _, want := range rule.Conditions.CustomerTags {
			for _, have := range req.CustomerTags {
				if strings.EqualFold(want, have) {
					return true
				}
			}
		}
		return false

	case domain.RuleVolume:
		if min := rule.Conditions.MinArea; min != nil && req.TotalArea < *min {
			return false
		}
		if max := rule.Conditions.MaxArea; max != nil && req.TotalArea > *max {
			return false
		}
		return true
	}
	return false
}

// serviceMatches reports whether a service-type rule targets the quote,
// by case-insensitive substring match on the service name.
func serviceMatches(rule *domain.PricingRule, svc *domain.ServiceQuote) bool {
	name := strings.ToLower(svc.Name)
	for _, t := range rule.Conditions.ServiceTypes {
		if strings.Contains(name, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// applyAdjustment transforms one service's price in the fixed order:
// multiplier, fixed per-unit override (which replaces rather than
// compounds), total recompute, surcharge, discount, minimum-charge
// floor, zero floor. Returns the signed dollar delta against the
// service's total at entry.
func applyAdjustment(svc *domain.ServiceQuote, adj *domain.RuleAdjustment) float64 {
	before := svc.TotalPrice

	if m := adj.PriceMultiplier; m != nil && *m != 1 {
		svc.PricePerUnit *= *m
	}

	if len(adj.FixedPrices) > 0 {
		name := strings.ToLower(svc.Name)
		for _, key := range fixedPriceKeys {
			price, ok := adj.FixedPrices[key]
			if !ok {
				continue
			}
			if strings.Contains(name, key) {
				svc.PricePerUnit = price
				break
			}
		}
	}

	svc.TotalPrice = svc.Area * svc.PricePerUnit

	if adj.Surcharge != nil {
		svc.TotalPrice += *adj.Surcharge
	}

	if d := adj.Discount; d != nil {
		switch d.Type {
		case domain.DiscountPercentage:
			svc.TotalPrice -= svc.TotalPrice * d.Value / 100
		case domain.DiscountFixed:
			svc.TotalPrice -= d.Value
		}
	}

	if min := adj.MinimumCharge; min != nil && svc.TotalPrice < *min {
		svc.TotalPrice = *min
	}

	if svc.TotalPrice < 0 {
		svc.TotalPrice = 0
	}

	return svc.TotalPrice - before
}

func cloneQuotes(in []domain.ServiceQuote) []domain.ServiceQuote {
	out := make([]domain.ServiceQuote, len(in))
	copy(out, in)
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
