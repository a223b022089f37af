package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
	"github.com/verdantlabs/verdant/internal/pkg/metrics"
)

// measurementRequest is the body of POST /v1/measurements.
type measurementRequest struct {
	BusinessID string         `json:"business_id"`
	Polygon    domain.Polygon `json:"polygon"`
}

// measurementResponse adds display strings to the numeric record.
type measurementResponse struct {
	*domain.MeasurementResult
	Formatted map[string]string `json:"formatted"`
}

func formatted(m *domain.MeasurementResult) map[string]string {
	return map[string]string{
		"total_area": geospatial.FormatArea(float64(m.TotalArea)),
		"lawn_total": geospatial.FormatArea(float64(m.Lawn.Total)),
		"driveway":   geospatial.FormatArea(float64(m.Driveway)),
		"building":   geospatial.FormatArea(float64(m.Building)),
	}
}

// CreateMeasurementHandler measures a property polygon and persists the
// result.
func CreateMeasurementHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req measurementRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.BusinessID == "" {
			return errBadRequest(c, "business_id is required")
		}
		if len(req.Polygon) > 1000 {
			return errBadRequest(c, "polygon too large (max 1000 vertices)")
		}

		m, err := deps.Measurements.Measure(c.Context(), req.BusinessID, req.Polygon)
		if err != nil {
			return errInternal(c, err.Error())
		}
		metrics.MeasurementsComputed.Inc()

		return c.Status(201).JSON(measurementResponse{MeasurementResult: m, Formatted: formatted(m)})
	}
}

// GetMeasurementHandler returns a persisted measurement by ID.
func GetMeasurementHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "measurement id is required")
		}
		m, err := deps.Measurements.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "measurement not found")
		}
		return c.JSON(measurementResponse{MeasurementResult: m, Formatted: formatted(m)})
	}
}

// ListMeasurementsHandler lists a business's measurements, newest first.
func ListMeasurementsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		businessID := c.Query("business_id")
		if businessID == "" {
			return errBadRequest(c, "business_id query parameter is required")
		}
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}

		list, total, err := deps.Measurements.ListByBusiness(c.Context(), businessID, limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: list, Pagination: pg})
	}
}

// snapRequest is the body of POST /v1/boundaries/snap.
type snapRequest struct {
	Polygon domain.Polygon     `json:"polygon"`
	Options domain.SnapOptions `json:"options"`
}

// SnapBoundariesHandler refines a drawn polygon against detected edges.
func SnapBoundariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req snapRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Polygon) > 1000 {
			return errBadRequest(c, "polygon too large (max 1000 vertices)")
		}

		res, err := deps.Snapping.SnapToBoundaries(c.Context(), req.Polygon, req.Options)
		if err != nil {
			return errInternal(c, err.Error())
		}
		metrics.SnapConfidence.Observe(res.Confidence)

		return c.JSON(res)
	}
}

// detectRequest is the body of POST /v1/boundaries/detect.
type detectRequest struct {
	Center       domain.GeoPoint `json:"center"`
	RadiusMeters float64         `json:"radius_meters"`
}

// DetectBoundariesHandler finds a property boundary around a point
// without a drawn polygon.
func DetectBoundariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req detectRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Center.Lat == 0 && req.Center.Lon == 0 {
			return errBadRequest(c, "center is required")
		}
		if req.RadiusMeters > 1000 {
			return errBadRequest(c, "radius_meters must be at most 1000")
		}

		res, err := deps.Snapping.AutoDetectBoundaries(c.Context(), req.Center, req.RadiusMeters)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if res.Fallback {
			metrics.BoundaryFallbacks.Inc()
		}

		return c.JSON(res)
	}
}

// simplifyRequest is the body of POST /v1/boundaries/simplify.
type simplifyRequest struct {
	Polygon         domain.Polygon `json:"polygon"`
	ToleranceMeters float64        `json:"tolerance_meters"`
}

// SimplifyBoundariesHandler reduces a polygon's vertex count.
func SimplifyBoundariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req simplifyRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.ToleranceMeters <= 0 {
			req.ToleranceMeters = 0.5
		}

		return c.JSON(fiber.Map{
			"polygon": deps.Snapping.Simplify(req.Polygon, req.ToleranceMeters),
		})
	}
}

// CalculatePricingHandler runs a quote through the rule engine, with
// side effects (usage counters, events).
func CalculatePricingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PricingRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.BusinessID == "" {
			return errBadRequest(c, "business_id is required")
		}
		if len(req.Services) == 0 {
			return errBadRequest(c, "services must not be empty")
		}

		res := deps.Pricing.Calculate(c.Context(), req)
		metrics.QuotesPriced.Inc()
		for _, ar := range res.AppliedRules {
			metrics.RulesApplied.WithLabelValues(string(ar.RuleType)).Inc()
		}
		var total float64
		for _, svc := range res.Services {
			total += svc.TotalPrice
		}
		LoggerFromCtx(c.UserContext()).Debug("quote priced",
			"business_id", req.BusinessID, "total", total, "rules_applied", len(res.AppliedRules))

		return c.JSON(res)
	}
}

// PreviewPricingHandler runs the same evaluation without side effects.
func PreviewPricingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PricingRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.BusinessID == "" {
			return errBadRequest(c, "business_id is required")
		}
		if len(req.Services) == 0 {
			return errBadRequest(c, "services must not be empty")
		}

		return c.JSON(deps.Pricing.Preview(c.Context(), req))
	}
}

// createRuleRequest is the body of POST /v1/pricing/rules. Stackable is
// a pointer so an absent field can pick a type-dependent default.
type createRuleRequest struct {
	BusinessID  string                `json:"business_id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Type        domain.RuleType       `json:"type"`
	Conditions  domain.RuleConditions `json:"conditions"`
	Pricing     domain.RuleAdjustment `json:"pricing"`
	Priority    int                   `json:"priority"`
	Stackable   *bool                 `json:"stackable"`
	IsActive    *bool                 `json:"is_active"`
}

func validRuleType(t domain.RuleType) bool {
	switch t {
	case domain.RuleZone, domain.RuleService, domain.RuleCustomer, domain.RuleVolume:
		return true
	}
	return false
}

// CreateRuleHandler creates a pricing rule.
func CreateRuleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRuleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.BusinessID == "" || req.Name == "" {
			return errBadRequest(c, "business_id and name are required")
		}
		if !validRuleType(req.Type) {
			return errBadRequest(c, "type must be one of: zone, service, customer, volume")
		}

		rule := domain.PricingRule{
			BusinessID:  req.BusinessID,
			Name:        req.Name,
			Description: req.Description,
			Type:        req.Type,
			Conditions:  req.Conditions,
			Pricing:     req.Pricing,
			Priority:    req.Priority,
			// Customer rules stack unless the caller says otherwise.
			Stackable: req.Type == domain.RuleCustomer,
			IsActive:  true,
		}
		if req.Stackable != nil {
			rule.Stackable = *req.Stackable
		}
		if req.IsActive != nil {
			rule.IsActive = *req.IsActive
		}

		if err := deps.Rules.Create(c.Context(), &rule); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(rule)
	}
}

// GetRuleHandler returns a rule by ID.
func GetRuleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "rule id is required")
		}
		rule, err := deps.Rules.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "rule not found")
		}
		return c.JSON(rule)
	}
}

// ListRulesHandler lists a business's rules in evaluation order.
func ListRulesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		businessID := c.Query("business_id")
		if businessID == "" {
			return errBadRequest(c, "business_id query parameter is required")
		}
		activeOnly := c.QueryBool("active", false)

		rules, err := deps.Rules.List(c.Context(), businessID, activeOnly)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(rules)
	}
}

// setActiveRequest is the body of PATCH /v1/pricing/rules/:id/active.
type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetRuleActiveHandler toggles a rule without deleting its history.
func SetRuleActiveHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "rule id is required")
		}
		var req setActiveRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Rules.SetActive(c.Context(), id, req.Active); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// RuleApplicationsHandler returns a rule's recent audit rows.
func RuleApplicationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "rule id is required")
		}
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		apps, err := deps.Applications.ListByRule(c.Context(), id, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(apps)
	}
}
