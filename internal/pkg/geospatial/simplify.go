package geospatial

import "github.com/verdantlabs/verdant/internal/core/domain"

// DouglasPeucker simplifies a polyline by recursively dropping points
// whose perpendicular distance to the chord between the segment
// endpoints is within toleranceMeters. Distances come from the planar
// frame (degree space scaled by MetersPerDegreeLat), so the same
// lot-scale approximation limits apply as for area.
func DouglasPeucker(p domain.Polygon, toleranceMeters float64) domain.Polygon {
	if len(p) < 3 || toleranceMeters <= 0 {
		return p
	}

	keep := make([]bool, len(p))
	keep[0] = true
	keep[len(p)-1] = true
	dpMark(p, 0, len(p)-1, toleranceMeters, keep)

	out := make(domain.Polygon, 0, len(p))
	for i, k := range keep {
		if k {
			out = append(out, p[i])
		}
	}
	return out
}

func dpMark(p domain.Polygon, first, last int, tol float64, keep []bool) {
	if last <= first+1 {
		return
	}

	maxDist := 0.0
	maxIdx := first
	for i := first + 1; i < last; i++ {
		d := PointToSegmentMeters(p[i], p[first], p[last])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist > tol {
		keep[maxIdx] = true
		dpMark(p, first, maxIdx, tol, keep)
		dpMark(p, maxIdx, last, tol, keep)
	}
}
