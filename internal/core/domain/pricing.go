package domain

import "time"

// RuleType is one of the four pricing-rule categories.
type RuleType string

const (
	RuleZone     RuleType = "zone"
	RuleService  RuleType = "service"
	RuleCustomer RuleType = "customer"
	RuleVolume   RuleType = "volume"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount reduces a service total by a percentage or a flat amount.
type Discount struct {
	Type  DiscountType `json:"type"`
	Value float64      `json:"value"`
}

// RuleConditions holds the type-specific predicate fields of a rule.
// Only the fields relevant to the rule's type are consulted.
type RuleConditions struct {
	ZipCodes     []string `json:"zip_codes,omitempty"`
	ServiceTypes []string `json:"service_types,omitempty"`
	CustomerTags []string `json:"customer_tags,omitempty"`
	MinArea      *float64 `json:"min_area,omitempty"`
	MaxArea      *float64 `json:"max_area,omitempty"`
}

// RuleAdjustment is the price transformation a rule applies. Fields are
// applied in a fixed order: multiplier, fixed per-unit override,
// total recompute, surcharge, discount, minimum-charge floor, zero floor.
type RuleAdjustment struct {
	PriceMultiplier *float64           `json:"price_multiplier,omitempty"`
	FixedPrices     map[string]float64 `json:"fixed_prices,omitempty"` // keyed by service-name substring: lawn|driveway|sidewalk|building
	Surcharge       *float64           `json:"surcharge,omitempty"`
	Discount        *Discount          `json:"discount,omitempty"`
	MinimumCharge   *float64           `json:"minimum_charge,omitempty"`
}

// PricingRule is a business-owned pricing adjustment. Read-only to the
// engine except for the AppliedCount counter, which is incremented as a
// fire-and-forget side effect whenever the rule fires.
//
// Stackable makes the stacking policy an explicit attribute instead of
// a type-name check: a non-stackable rule is skipped for a service that
// already had a rule of the same type applied. Customer rules default
// to stackable.
type PricingRule struct {
	ID           string         `json:"id"`
	BusinessID   string         `json:"business_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Type         RuleType       `json:"type"`
	Conditions   RuleConditions `json:"conditions"`
	Pricing      RuleAdjustment `json:"pricing"`
	Priority     int            `json:"priority"`
	Stackable    bool           `json:"stackable"`
	IsActive     bool           `json:"is_active"`
	AppliedCount int64          `json:"applied_count"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ServiceQuote is a priced line item. The engine copies quotes before
// adjusting them — caller-supplied slices are never mutated.
type ServiceQuote struct {
	Name         string  `json:"name"`
	Area         float64 `json:"area"`
	PricePerUnit float64 `json:"price_per_unit"`
	TotalPrice   float64 `json:"total_price"`
}

// AppliedRule is one audit-trail entry: a rule that produced a
// non-negligible price change, with the summed signed dollar delta
// across every service it touched (positive = increase).
type AppliedRule struct {
	RuleID      string   `json:"rule_id"`
	RuleName    string   `json:"rule_name"`
	RuleType    RuleType `json:"rule_type"`
	Adjustment  float64  `json:"adjustment"`
	Description string   `json:"description,omitempty"`
}

// PricingRequest is the evaluation context for one quote.
type PricingRequest struct {
	BusinessID   string         `json:"business_id"`
	Services     []ServiceQuote `json:"services"`
	CustomerTags []string       `json:"customer_tags,omitempty"`
	ZipCode      string         `json:"zip_code,omitempty"`
	TotalArea    float64        `json:"total_area"`
	Date         time.Time      `json:"date,omitempty"`
}

// PricingResult is the adjusted services plus the audit trail.
type PricingResult struct {
	Services     []ServiceQuote `json:"services"`
	AppliedRules []AppliedRule  `json:"applied_rules"`
}

// PricingPreview extends PricingResult with what-if totals.
type PricingPreview struct {
	PricingResult
	OriginalTotal float64 `json:"original_total"`
	AdjustedTotal float64 `json:"adjusted_total"`
	Delta         float64 `json:"delta"`
}

// RuleApplication is a persisted audit row recorded by the worker when
// a rule fires on a committed quote.
type RuleApplication struct {
	ID         string    `json:"id"`
	RuleID     string    `json:"rule_id"`
	BusinessID string    `json:"business_id"`
	RuleType   RuleType  `json:"rule_type"`
	Adjustment float64   `json:"adjustment"`
	AppliedAt  time.Time `json:"applied_at"`
}
