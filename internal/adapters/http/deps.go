package http

import (
	"github.com/nats-io/nats.go"

	"github.com/verdantlabs/verdant/internal/adapters/postgres"
	"github.com/verdantlabs/verdant/internal/adapters/valkey"
	"github.com/verdantlabs/verdant/internal/core/ports"
	"github.com/verdantlabs/verdant/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Measurements *usecases.MeasurementService
	Snapping     *usecases.SnappingService
	Pricing      *usecases.PricingService
	Rules        ports.PricingRuleRepository
	Applications ports.RuleApplicationRepository
	NATS         *nats.Conn
	DB           *postgres.DB
	Cache        *valkey.Cache
}
