package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to our services. It is a
// read model: mutations go through the REST endpoints.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	lawnAreasType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LawnAreas",
		Fields: graphql.Fields{
			"front_yard": &graphql.Field{Type: graphql.Int},
			"back_yard":  &graphql.Field{Type: graphql.Int},
			"side_yard":  &graphql.Field{Type: graphql.Int},
			"total":      &graphql.Field{Type: graphql.Int},
		},
	})

	measurementType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Measurement",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"business_id": &graphql.Field{Type: graphql.String},
			"total_area":  &graphql.Field{Type: graphql.Int},
			"lawn":        &graphql.Field{Type: lawnAreasType},
			"driveway":    &graphql.Field{Type: graphql.Int},
			"sidewalk":    &graphql.Field{Type: graphql.Int},
			"building":    &graphql.Field{Type: graphql.Int},
			"other":       &graphql.Field{Type: graphql.Int},
			"perimeter":   &graphql.Field{Type: graphql.Int},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	conditionsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RuleConditions",
		Fields: graphql.Fields{
			"zip_codes":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"service_types": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"customer_tags": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"min_area":      &graphql.Field{Type: graphql.Float},
			"max_area":      &graphql.Field{Type: graphql.Float},
		},
	})

	adjustmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RuleAdjustment",
		Fields: graphql.Fields{
			"price_multiplier": &graphql.Field{Type: graphql.Float},
			"surcharge":        &graphql.Field{Type: graphql.Float},
			"minimum_charge":   &graphql.Field{Type: graphql.Float},
		},
	})

	ruleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PricingRule",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"business_id":   &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"description":   &graphql.Field{Type: graphql.String},
			"type":          &graphql.Field{Type: graphql.String},
			"conditions":    &graphql.Field{Type: conditionsType},
			"pricing":       &graphql.Field{Type: adjustmentType},
			"priority":      &graphql.Field{Type: graphql.Int},
			"stackable":     &graphql.Field{Type: graphql.Boolean},
			"is_active":     &graphql.Field{Type: graphql.Boolean},
			"applied_count": &graphql.Field{Type: graphql.Int},
			"created_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	applicationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RuleApplication",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"rule_id":     &graphql.Field{Type: graphql.String},
			"business_id": &graphql.Field{Type: graphql.String},
			"rule_type":   &graphql.Field{Type: graphql.String},
			"adjustment":  &graphql.Field{Type: graphql.Float},
			"applied_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"measurement": &graphql.Field{
				Type:        measurementType,
				Description: "Get a measurement by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Measurements.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"measurements": &graphql.Field{
				Type:        graphql.NewList(measurementType),
				Description: "List a business's measurements, newest first",
				Args: graphql.FieldConfigArgument{
					"business_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					list, _, err := deps.Measurements.ListByBusiness(p.Context,
						p.Args["business_id"].(string), p.Args["limit"].(int), p.Args["offset"].(int))
					return list, err
				},
			},
			"pricingRule": &graphql.Field{
				Type:        ruleType,
				Description: "Get a pricing rule by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Rules.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"pricingRules": &graphql.Field{
				Type:        graphql.NewList(ruleType),
				Description: "List a business's pricing rules in evaluation order",
				Args: graphql.FieldConfigArgument{
					"business_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"active_only": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Rules.List(p.Context, p.Args["business_id"].(string), p.Args["active_only"].(bool))
				},
			},
			"ruleApplications": &graphql.Field{
				Type:        graphql.NewList(applicationType),
				Description: "Recent audit rows for a rule",
				Args: graphql.FieldConfigArgument{
					"rule_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Applications.ListByRule(p.Context, p.Args["rule_id"].(string), p.Args["limit"].(int))
				},
			},
			"formatArea": &graphql.Field{
				Type:        graphql.String,
				Description: "Human-readable area string for a square-foot value",
				Args: graphql.FieldConfigArgument{
					"square_feet": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geospatial.FormatArea(p.Args["square_feet"].(float64)), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
