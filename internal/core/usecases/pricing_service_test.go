package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/core/usecases"
	"github.com/verdantlabs/verdant/internal/pkg/metrics"
)

// --- Mock PricingRuleRepository ---

type mockRuleRepo struct {
	listActiveFn func(ctx context.Context, businessID string) ([]domain.PricingRule, error)
	incremented  []string
}

func (m *mockRuleRepo) Create(ctx context.Context, r *domain.PricingRule) error { return nil }
func (m *mockRuleRepo) GetByID(ctx context.Context, id string) (*domain.PricingRule, error) {
	return nil, nil
}
func (m *mockRuleRepo) List(ctx context.Context, businessID string, activeOnly bool) ([]domain.PricingRule, error) {
	return nil, nil
}
func (m *mockRuleRepo) SetActive(ctx context.Context, id string, active bool) error { return nil }

func (m *mockRuleRepo) ListActive(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, businessID)
	}
	return nil, nil
}

func (m *mockRuleRepo) IncrementAppliedCount(ctx context.Context, id string) error {
	m.incremented = append(m.incremented, id)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	ruleApplied []domain.RuleApplication
	quotePriced int
}

func (m *mockPublisher) PublishQuotePriced(ctx context.Context, r *domain.PricingResult, businessID string) error {
	m.quotePriced++
	return nil
}
func (m *mockPublisher) PublishRuleApplied(ctx context.Context, app *domain.RuleApplication) error {
	m.ruleApplied = append(m.ruleApplied, *app)
	return nil
}
func (m *mockPublisher) PublishMeasurementCompleted(ctx context.Context, mr *domain.MeasurementResult) error {
	return nil
}

// --- Helpers ---

func f(v float64) *float64 { return &v }

func lawnCareQuote() []domain.ServiceQuote {
	return []domain.ServiceQuote{
		{Name: "Lawn Care", Area: 5000, PricePerUnit: 0.02, TotalPrice: 100},
	}
}

func lawnRequest() domain.PricingRequest {
	return domain.PricingRequest{
		BusinessID: "biz-1",
		Services:   lawnCareQuote(),
		ZipCode:    "M5V",
		TotalArea:  5000,
		Date:       time.Now(),
	}
}

func zoneRule(id string, priority int, multiplier float64) domain.PricingRule {
	return domain.PricingRule{
		ID:         id,
		BusinessID: "biz-1",
		Name:       "Zone " + id,
		Type:       domain.RuleZone,
		Conditions: domain.RuleConditions{ZipCodes: []string{"M5V"}},
		Pricing:    domain.RuleAdjustment{PriceMultiplier: f(multiplier)},
		Priority:   priority,
		IsActive:   true,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// --- Tests ---

func TestPricingService_ZoneMultiplier(t *testing.T) {
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{zoneRule("r1", 10, 0.95)}, nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewPricingService(repo, pub)

	req := lawnRequest()
	res := svc.Calculate(context.Background(), req)

	if len(res.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(res.Services))
	}
	got := res.Services[0]
	if !approx(got.PricePerUnit, 0.019) {
		t.Errorf("price per unit = %v, want 0.019", got.PricePerUnit)
	}
	if !approx(got.TotalPrice, 95) {
		t.Errorf("total = %v, want 95", got.TotalPrice)
	}
	if len(res.AppliedRules) != 1 {
		t.Fatalf("expected 1 applied rule, got %d", len(res.AppliedRules))
	}
	ar := res.AppliedRules[0]
	if ar.RuleType != domain.RuleZone || !approx(ar.Adjustment, -5) {
		t.Errorf("applied rule = %+v, want zone adjustment -5", ar)
	}

	// The caller's slice must stay untouched.
	if req.Services[0].TotalPrice != 100 || req.Services[0].PricePerUnit != 0.02 {
		t.Errorf("input services mutated: %+v", req.Services[0])
	}

	// Side effects fired.
	if len(repo.incremented) != 1 || repo.incremented[0] != "r1" {
		t.Errorf("applied count increments = %v, want [r1]", repo.incremented)
	}
	if pub.quotePriced != 1 || len(pub.ruleApplied) != 1 {
		t.Errorf("events: quotePriced=%d ruleApplied=%d", pub.quotePriced, len(pub.ruleApplied))
	}
}

func TestPricingService_FixedPriceWithMinimumCharge(t *testing.T) {
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{{
				ID: "r2", Name: "Premium lawn rate", Type: domain.RuleService,
				Conditions: domain.RuleConditions{ServiceTypes: []string{"lawn"}},
				Pricing: domain.RuleAdjustment{
					FixedPrices:   map[string]float64{"lawn": 0.025},
					MinimumCharge: f(150),
				},
				Priority: 5, IsActive: true,
			}}, nil
		},
	}
	svc := usecases.NewPricingService(repo, nil)

	res := svc.Calculate(context.Background(), lawnRequest())

	got := res.Services[0]
	if !approx(got.PricePerUnit, 0.025) {
		t.Errorf("price per unit = %v, want 0.025", got.PricePerUnit)
	}
	// Raw total 5000×0.025 = 125, clamped up to the 150 floor.
	if !approx(got.TotalPrice, 150) {
		t.Errorf("total = %v, want 150", got.TotalPrice)
	}
	if len(res.AppliedRules) != 1 || !approx(res.AppliedRules[0].Adjustment, 50) {
		t.Errorf("applied rules = %+v, want one with adjustment 50", res.AppliedRules)
	}
}

func TestPricingService_SameTypeRulesDoNotStack(t *testing.T) {
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			// Already ordered by priority descending, as the repo contract requires.
			return []domain.PricingRule{
				zoneRule("high", 10, 0.90),
				zoneRule("low", 5, 0.50),
			}, nil
		},
	}
	svc := usecases.NewPricingService(repo, nil)

	res := svc.Calculate(context.Background(), lawnRequest())

	if !approx(res.Services[0].TotalPrice, 90) {
		t.Errorf("total = %v, want 90 (only the higher-priority zone rule)", res.Services[0].TotalPrice)
	}
	if len(res.AppliedRules) != 1 || res.AppliedRules[0].RuleID != "high" {
		t.Errorf("applied rules = %+v, want only rule 'high'", res.AppliedRules)
	}
}

func TestPricingService_CustomerRulesStack(t *testing.T) {
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{
				zoneRule("zone", 10, 0.90),
				{
					ID: "vip", Name: "VIP discount", Type: domain.RuleCustomer,
					Conditions: domain.RuleConditions{CustomerTags: []string{"vip"}},
					Pricing: domain.RuleAdjustment{
						Discount: &domain.Discount{Type: domain.DiscountPercentage, Value: 10},
					},
					Priority: 5, Stackable: true, IsActive: true,
				},
			}, nil
		},
	}
	svc := usecases.NewPricingService(repo, nil)

	req := lawnRequest()
	req.CustomerTags = []string{"VIP"}
	res := svc.Calculate(context.Background(), req)

	// 100 × 0.9 = 90, then 10% off → 81. Both adjustments compound.
	if !approx(res.Services[0].TotalPrice, 81) {
		t.Errorf("total = %v, want 81", res.Services[0].TotalPrice)
	}
	if len(res.AppliedRules) != 2 {
		t.Errorf("expected both rules in the audit trail, got %+v", res.AppliedRules)
	}
}

func TestPricingService_VolumeBounds(t *testing.T) {
	rule := domain.PricingRule{
		ID: "vol", Name: "Bulk discount", Type: domain.RuleVolume,
		Conditions: domain.RuleConditions{MinArea: f(1000), MaxArea: f(10000)},
		Pricing:    domain.RuleAdjustment{PriceMultiplier: f(0.8)},
		Priority:   1, IsActive: true,
	}
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{rule}, nil
		},
	}
	svc := usecases.NewPricingService(repo, nil)

	small := lawnRequest()
	small.TotalArea = 500
	if res := svc.Calculate(context.Background(), small); len(res.AppliedRules) != 0 {
		t.Errorf("rule applied below the area floor: %+v", res.AppliedRules)
	}

	inRange := lawnRequest()
	if res := svc.Calculate(context.Background(), inRange); len(res.AppliedRules) != 1 {
		t.Errorf("rule not applied inside the bounds")
	}
}

func TestPricingService_NegligibleAdjustmentNotRecorded(t *testing.T) {
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{zoneRule("noop", 1, 1.0)}, nil
		},
	}
	svc := usecases.NewPricingService(repo, nil)

	res := svc.Calculate(context.Background(), lawnRequest())
	if len(res.AppliedRules) != 0 {
		t.Errorf("no-op rule should not appear in the audit trail: %+v", res.AppliedRules)
	}
	if len(repo.incremented) != 0 {
		t.Errorf("no-op rule should not increment usage: %v", repo.incremented)
	}
}

func TestPricingService_FailsOpenOnStoreError(t *testing.T) {
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return nil, errors.New("store unavailable")
		},
	}
	svc := usecases.NewPricingService(repo, nil)

	before := testutil.ToFloat64(metrics.PricingFailOpens)
	res := svc.Calculate(context.Background(), lawnRequest())

	if len(res.AppliedRules) != 0 {
		t.Errorf("expected empty applied rules on fail-open")
	}
	if got := res.Services[0]; got.TotalPrice != 100 || got.PricePerUnit != 0.02 {
		t.Errorf("expected original prices on fail-open, got %+v", got)
	}
	if got := testutil.ToFloat64(metrics.PricingFailOpens) - before; got != 1 {
		t.Errorf("fail-open counter delta = %v, want 1", got)
	}
}

func TestPricingService_PreviewHasNoSideEffects(t *testing.T) {
	repo := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{zoneRule("r1", 10, 0.95)}, nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewPricingService(repo, pub)

	preview := svc.Preview(context.Background(), lawnRequest())

	if !approx(preview.OriginalTotal, 100) {
		t.Errorf("original total = %v, want 100", preview.OriginalTotal)
	}
	if !approx(preview.AdjustedTotal, 95) {
		t.Errorf("adjusted total = %v, want 95", preview.AdjustedTotal)
	}
	if !approx(preview.Delta, -5) {
		t.Errorf("delta = %v, want -5", preview.Delta)
	}
	if len(repo.incremented) != 0 {
		t.Errorf("preview must not increment applied counts: %v", repo.incremented)
	}
	if pub.quotePriced != 0 || len(pub.ruleApplied) != 0 {
		t.Errorf("preview must not publish events")
	}
}
