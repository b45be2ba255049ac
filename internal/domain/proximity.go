package domain

import (
	"math"
	"sort"
)

// earthRadius is the mean Earth radius in meters.
const earthRadius = 6371e3

// HaversineDistance returns the great-circle distance in meters between two
// WGS-84 points. NaN inputs produce NaN.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// WithDistances returns copies of places annotated with their distance from
// the given point. Places at 0,0 have an unknown location and are left
// without a distance. The input slice is not modified.
func WithDistances(places []Place, lat, lng float64) []Place {
	out := make([]Place, len(places))
	for i, p := range places {
		p.Distance = nil
		if p.HasLocation() {
			d := HaversineDistance(lat, lng, p.Lat, p.Lng)
			p.Distance = &d
		}
		out[i] = p
	}
	return out
}

// KClosest returns at most k places ordered by ascending distance. Only
// places that already carry a distance are considered: call WithDistances
// first, or places are silently left out.
func KClosest(places []Place, k int) []Place {
	if k <= 0 {
		return []Place{}
	}

	withDistance := make([]Place, 0, len(places))
	for _, p := range places {
		if p.Distance != nil {
			withDistance = append(withDistance, p)
		}
	}
	sort.SliceStable(withDistance, func(i, j int) bool {
		return *withDistance[i].Distance < *withDistance[j].Distance
	})

	if len(withDistance) > k {
		withDistance = withDistance[:k]
	}
	return withDistance
}
