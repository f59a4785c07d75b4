package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema over the public read surface.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"lat":       &graphql.Field{Type: graphql.Float},
			"lng":       &graphql.Field{Type: graphql.Float},
			"is_active": &graphql.Field{Type: graphql.Boolean},
		},
	})

	geofenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Geofence",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"polygon":    &graphql.Field{Type: graphql.NewList(coordinateType)},
			"is_active":  &graphql.Field{Type: graphql.Boolean},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
			"area_km2": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					g := p.Source.(*domain.Geofence)
					return geospatial.Summarize(g.Polygon).AreaKm2, nil
				},
			},
		},
	})

	pointCheckType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PointCheck",
		Fields: graphql.Fields{
			"inside":      &graphql.Field{Type: graphql.Boolean},
			"coordinates": &graphql.Field{Type: graphql.String},
		},
	})

	fareQuoteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FareQuote",
		Fields: graphql.Fields{
			"amount":      &graphql.Field{Type: graphql.String},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"trip_type":   &graphql.Field{Type: graphql.String},
			"station_id":  &graphql.Field{Type: graphql.String},
		},
	})

	bookingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Booking",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"pickup_lat":  &graphql.Field{Type: graphql.Float},
			"pickup_lng":  &graphql.Field{Type: graphql.Float},
			"dropoff_lat": &graphql.Field{Type: graphql.Float},
			"dropoff_lng": &graphql.Field{Type: graphql.Float},
			"station_id":  &graphql.Field{Type: graphql.String},
			"trip_type":   &graphql.Field{Type: graphql.String},
			"fare": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.Booking).Fare.String(), nil
				},
			},
			"status":     &graphql.Field{Type: graphql.String},
			"driver_id":  &graphql.Field{Type: graphql.String},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "Active drop-off stations",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.ListActive(p.Context)
				},
			},
			"activeGeofence": &graphql.Field{
				Type:        geofenceType,
				Description: "The service boundary riders must be inside",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Geofences.Active(p.Context)
				},
			},
			"checkPoint": &graphql.Field{
				Type:        pointCheckType,
				Description: "Test a point against the service boundary",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.Coordinate{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					if !pt.Valid() {
						return nil, &domain.ValidationError{Kind: domain.InvalidCoordinate, Field: "point", Msg: "coordinate out of range"}
					}
					inside, err := deps.Geofences.Contains(p.Context, pt)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"inside":      inside,
						"coordinates": geospatial.FormatCoordinates(pt),
					}, nil
				},
			},
			"fareQuote": &graphql.Field{
				Type:        fareQuoteType,
				Description: "Price a trip; stationId overrides the drop-off point",
				Args: graphql.FieldConfigArgument{
					"pickupLat":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"pickupLng":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"dropoffLat": &graphql.ArgumentConfig{Type: graphql.Float},
					"dropoffLng": &graphql.ArgumentConfig{Type: graphql.Float},
					"stationId":  &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pickup := domain.Coordinate{Lat: p.Args["pickupLat"].(float64), Lng: p.Args["pickupLng"].(float64)}
					stationID, _ := p.Args["stationId"].(string)
					if stationID != "" && !validID(stationID) {
						return nil, &domain.ValidationError{Kind: domain.InvalidInput, Field: "stationId", Msg: "must be a UUID"}
					}

					var dropoff domain.Coordinate
					lat, hasLat := p.Args["dropoffLat"].(float64)
					lng, hasLng := p.Args["dropoffLng"].(float64)
					switch {
					case hasLat && hasLng:
						dropoff = domain.Coordinate{Lat: lat, Lng: lng}
					case stationID == "":
						return nil, errors.New("dropoffLat/dropoffLng or stationId is required")
					}

					quote, cls, err := deps.Bookings.Quote(p.Context, pickup, dropoff, stationID)
					if err != nil {
						return nil, err
					}
					out := map[string]interface{}{
						"amount":      quote.Amount.String(),
						"distance_km": quote.DistanceKm,
						"trip_type":   string(cls.Type),
					}
					if cls.Station != nil {
						out["station_id"] = cls.Station.ID
					}
					return out, nil
				},
			},
			"booking": &graphql.Field{
				Type:        bookingType,
				Description: "Get a booking by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					if !validID(id) {
						return nil, &domain.NotFoundError{Resource: "booking", ID: id}
					}
					return deps.Bookings.GetBooking(p.Context, id)
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
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
