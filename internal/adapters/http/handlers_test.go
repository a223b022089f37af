package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/verdantlabs/verdant/internal/adapters/http"
	"github.com/verdantlabs/verdant/internal/adapters/imagery"
	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/core/usecases"
)

// ---- Mock repositories ----

type mockRuleRepo struct {
	listActiveFn func(ctx context.Context, businessID string) ([]domain.PricingRule, error)
	listFn       func(ctx context.Context, businessID string, activeOnly bool) ([]domain.PricingRule, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.PricingRule, error)
	incremented  int
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *domain.PricingRule) error {
	rule.ID = "r-new"
	rule.CreatedAt = time.Now()
	return nil
}
func (m *mockRuleRepo) GetByID(ctx context.Context, id string) (*domain.PricingRule, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockRuleRepo) ListActive(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, businessID)
	}
	return nil, nil
}
func (m *mockRuleRepo) List(ctx context.Context, businessID string, activeOnly bool) ([]domain.PricingRule, error) {
	if m.listFn != nil {
		return m.listFn(ctx, businessID, activeOnly)
	}
	return nil, nil
}
func (m *mockRuleRepo) SetActive(ctx context.Context, id string, active bool) error { return nil }
func (m *mockRuleRepo) IncrementAppliedCount(ctx context.Context, id string) error {
	m.incremented++
	return nil
}

type mockMeasurementRepo struct {
	inserted []*domain.MeasurementResult
	getFn    func(ctx context.Context, id string) (*domain.MeasurementResult, error)
}

func (m *mockMeasurementRepo) Insert(ctx context.Context, rec *domain.MeasurementResult) error {
	rec.ID = "m-new"
	rec.CreatedAt = time.Now()
	m.inserted = append(m.inserted, rec)
	return nil
}
func (m *mockMeasurementRepo) GetByID(ctx context.Context, id string) (*domain.MeasurementResult, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}
func (m *mockMeasurementRepo) ListByBusiness(ctx context.Context, businessID string, limit, offset int) ([]domain.MeasurementResult, int, error) {
	return nil, 0, nil
}

type mockApplicationRepo struct {
	listByRuleFn func(ctx context.Context, ruleID string, limit int) ([]domain.RuleApplication, error)
}

func (m *mockApplicationRepo) InsertBatch(ctx context.Context, apps []domain.RuleApplication) error {
	return nil
}
func (m *mockApplicationRepo) ListByRule(ctx context.Context, ruleID string, limit int) ([]domain.RuleApplication, error) {
	if m.listByRuleFn != nil {
		return m.listByRuleFn(ctx, ruleID, limit)
	}
	return nil, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	rules := &mockRuleRepo{}
	d := &handler.Dependencies{
		Measurements: usecases.NewMeasurementService(
			usecases.NewProportionalDetector(usecases.DefaultSplitFractions()),
			&mockMeasurementRepo{}, nil, nil),
		Snapping:     usecases.NewSnappingService(imagery.NewSimulatedDetector()),
		Pricing:      usecases.NewPricingService(rules, nil),
		Rules:        rules,
		Applications: &mockApplicationRepo{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// squareLot is a ~33 m square around a mid-latitude point, as the
// editor would submit it.
const squareLot = `[
	{"lat":45.0000,"lon":-75.0000},
	{"lat":45.0000,"lon":-74.9996},
	{"lat":45.0003,"lon":-74.9996},
	{"lat":45.0003,"lon":-75.0000}
]`

// ---- Measurement handler tests ----

func TestCreateMeasurement_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/measurements",
		strings.NewReader(`{"business_id":"biz-1","polygon":`+squareLot+`}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		TotalArea int               `json:"total_area"`
		Lawn      domain.LawnAreas  `json:"lawn"`
		Formatted map[string]string `json:"formatted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.TotalArea <= 0 {
		t.Errorf("expected positive total area, got %d", result.TotalArea)
	}
	if result.Formatted["total_area"] == "" {
		t.Error("expected formatted total area")
	}
}

func TestCreateMeasurement_MissingBusinessID(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/measurements",
		strings.NewReader(`{"polygon":`+squareLot+`}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListMeasurements_RequiresBusinessID(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/measurements", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Boundary handler tests ----

func TestSnapBoundaries_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/boundaries/snap",
		strings.NewReader(`{"polygon":`+squareLot+`}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result domain.SnapResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Polygon) < 3 {
		t.Errorf("snapped polygon degenerate: %d vertices", len(result.Polygon))
	}
	if len(result.Adjustments) != 4 {
		t.Errorf("expected 4 adjustments, got %d", len(result.Adjustments))
	}
}

func TestDetectBoundaries_RequiresCenter(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/boundaries/detect",
		strings.NewReader(`{"radius_meters":100}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSimplifyBoundaries_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/boundaries/simplify",
		strings.NewReader(`{"polygon":`+squareLot+`,"tolerance_meters":0.5}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Polygon domain.Polygon `json:"polygon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Polygon) < 3 {
		t.Errorf("simplified polygon degenerate: %d vertices", len(result.Polygon))
	}
}

// ---- Pricing handler tests ----

func zoneMultiplierRule() domain.PricingRule {
	m := 0.95
	return domain.PricingRule{
		ID: "r1", Name: "Downtown zone", Type: domain.RuleZone,
		Conditions: domain.RuleConditions{ZipCodes: []string{"M5V"}},
		Pricing:    domain.RuleAdjustment{PriceMultiplier: &m},
		Priority:   10, IsActive: true,
	}
}

const pricingBody = `{
	"business_id": "biz-1",
	"zip_code": "M5V",
	"total_area": 5000,
	"services": [{"name":"Lawn Care","area":5000,"price_per_unit":0.02,"total_price":100}]
}`

func TestCalculatePricing_AppliesZoneRule(t *testing.T) {
	rules := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{zoneMultiplierRule()}, nil
		},
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Rules = rules
		d.Pricing = usecases.NewPricingService(rules, nil)
	}))

	req := httptest.NewRequest("POST", "/v1/pricing/calculate", strings.NewReader(pricingBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result domain.PricingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Services) != 1 || result.Services[0].TotalPrice != 95 {
		t.Errorf("unexpected result: %+v", result)
	}
	if rules.incremented != 1 {
		t.Errorf("expected 1 usage increment, got %d", rules.incremented)
	}
}

func TestCalculatePricing_EmptyServices(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/pricing/calculate",
		strings.NewReader(`{"business_id":"biz-1","services":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPreviewPricing_NoSideEffects(t *testing.T) {
	rules := &mockRuleRepo{
		listActiveFn: func(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
			return []domain.PricingRule{zoneMultiplierRule()}, nil
		},
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Rules = rules
		d.Pricing = usecases.NewPricingService(rules, nil)
	}))

	req := httptest.NewRequest("POST", "/v1/pricing/preview", strings.NewReader(pricingBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result domain.PricingPreview
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Delta != -5 {
		t.Errorf("delta = %v, want -5", result.Delta)
	}
	if rules.incremented != 0 {
		t.Errorf("preview must not increment usage, got %d", rules.incremented)
	}
}

func TestCreateRule_CustomerRulesDefaultStackable(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/pricing/rules",
		strings.NewReader(`{"business_id":"biz-1","name":"VIP discount","type":"customer"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var rule domain.PricingRule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		t.Fatal(err)
	}
	if !rule.Stackable {
		t.Error("customer rules should default to stackable")
	}
	if !rule.IsActive {
		t.Error("new rules should default to active")
	}
}

func TestCreateRule_RejectsUnknownType(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/pricing/rules",
		strings.NewReader(`{"business_id":"biz-1","name":"Bad","type":"seasonal"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListRules_RequiresBusinessID(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/pricing/rules", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
