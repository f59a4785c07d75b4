package usecases

import (
	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/pkg/fare"
	"github.com/pilartoda/trikeride/internal/pkg/geospatial"
)

// ClassifyTrip classifies a drop-off. An explicitly chosen station always
// makes the trip outbound; otherwise the geofence decides.
func ClassifyTrip(dropoff domain.Coordinate, station *domain.Station, geofence domain.Polygon) domain.TripClassification {
	if station != nil {
		st := *station
		return domain.TripClassification{Type: domain.TripOutbound, Station: &st}
	}
	if geospatial.PointInPolygon(dropoff, geofence) {
		return domain.TripClassification{Type: domain.TripVillage}
	}
	return domain.TripClassification{Type: domain.TripOutbound}
}

// QuoteTrip prices the straight-line trip between pickup and dropoff.
func QuoteTrip(schedule fare.Schedule, tripType domain.TripType, pickup, dropoff domain.Coordinate) domain.FareQuote {
	d := geospatial.DistanceKm(pickup, dropoff)
	return domain.FareQuote{
		Amount:     schedule.Compute(tripType, d),
		DistanceKm: d,
		TripType:   tripType,
	}
}
