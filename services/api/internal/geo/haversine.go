// Package geo implements great-circle distance filtering for listing search.
package geo

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceKm is the Haversine distance between two points.
func DistanceKm(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Located pairs an item with its distance from the search origin.
type Located[T any] struct {
	Item       T
	DistanceKm float64
}

// WithinRadius keeps the items no farther than radiusKm from origin, nearest first.
func WithinRadius[T any](origin Point, radiusKm float64, items []T, pos func(T) Point) []Located[T] {
	out := make([]Located[T], 0, len(items))
	for _, it := range items {
		d := DistanceKm(origin, pos(it))
		if d <= radiusKm {
			out = append(out, Located[T]{Item: it, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
