package geospatial

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// PointInPolygon reports whether point lies inside polygon using ray casting.
//
// Latitude plays the role of x and longitude the role of y. Membership of
// points exactly on an edge is whatever the crossing test yields.
func PointInPolygon(point domain.Coordinate, polygon []domain.Coordinate) bool {
	n := len(polygon)
	if n < domain.MinPolygonVertices {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := polygon[i].Lat, polygon[i].Lng
		xj, yj := polygon[j].Lat, polygon[j].Lng

		if (yi > point.Lng) != (yj > point.Lng) &&
			point.Lat < (xj-xi)*(point.Lng-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PolygonBounds returns the bounding box of the vertices.
func PolygonBounds(polygon []domain.Coordinate) (domain.Bounds, bool) {
	if len(polygon) == 0 {
		return domain.Bounds{}, false
	}
	b := domain.Bounds{
		MinLat: math.Inf(1), MinLng: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLng: math.Inf(-1),
	}
	for _, c := range polygon {
		b.MinLat = math.Min(b.MinLat, c.Lat)
		b.MaxLat = math.Max(b.MaxLat, c.Lat)
		b.MinLng = math.Min(b.MinLng, c.Lng)
		b.MaxLng = math.Max(b.MaxLng, c.Lng)
	}
	return b, true
}

// Summary describes a geofence for the admin editor.
type Summary struct {
	Vertices int                `json:"vertices"`
	Usable   bool               `json:"usable"`
	Bounds   *domain.Bounds     `json:"bounds,omitempty"`
	Centroid *domain.Coordinate `json:"centroid,omitempty"`
	AreaKm2  float64            `json:"area_km2"`
}

// Summarize computes bounds, spherical centroid and area of a polygon.
// Area and centroid are only reported for a valid simple loop.
func Summarize(polygon []domain.Coordinate) Summary {
	s := Summary{Vertices: len(polygon), Usable: len(polygon) >= domain.MinPolygonVertices}
	if b, ok := PolygonBounds(polygon); ok {
		s.Bounds = &b
	}
	if !s.Usable {
		return s
	}

	pts := make([]s2.Point, 0, len(polygon))
	for _, c := range polygon {
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lng)))
	}
	loop := s2.LoopFromPoints(pts)
	if err := loop.Validate(); err != nil {
		return s
	}
	loop.Normalize()

	s.AreaKm2 = loop.Area() * earthRadiusKm * earthRadiusKm
	ll := s2.LatLngFromPoint(loop.Centroid())
	s.Centroid = &domain.Coordinate{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
	return s
}
