package domain

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies within the WGS 84 ranges.
// NaN fails both comparisons and is therefore invalid.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Polygon is an ordered ring of vertices. The closing edge between the last
// and the first vertex is implicit.
type Polygon []Coordinate

// MinPolygonVertices is the smallest vertex count of a usable geofence.
const MinPolygonVertices = 3

// Usable reports whether the polygon has enough vertices to bound an area.
func (p Polygon) Usable() bool {
	return len(p) >= MinPolygonVertices
}

// Clone returns a copy that shares no backing array with p.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Equal compares two polygons vertex by vertex, order-sensitive.
func (p Polygon) Equal(o Polygon) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}
