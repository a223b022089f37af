package usecases

import (
	"context"
	"fmt"
	"math"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

const (
	// clusterRadiusMeters is the single-linkage distance for grouping
	// detected edges into candidate boundaries.
	clusterRadiusMeters = 10.0

	// minLoopEdges is the smallest cluster that can form a boundary loop.
	minLoopEdges = 4

	// fallbackHalfSideMeters sizes the default square returned when no
	// usable loop is found around the search center.
	fallbackHalfSideMeters = 25.0

	// Plausible lot sizes in square meters for the area bonus.
	plausibleAreaMin = 1000.0
	plausibleAreaMax = 10000.0
)

// AutoDetectBoundaries finds a property boundary around a search center
// without a user-drawn polygon. Detected edges are clustered by
// proximity, each cluster is chained into a candidate loop with a
// greedy nearest-neighbour walk (explicitly a heuristic, not an optimal
// tour), and candidates are scored on confidence, proximity to the
// center, right-angle count, and plausible lot area. When nothing
// usable is found a default square around the center is returned.
func (s *SnappingService) AutoDetectBoundaries(ctx context.Context, center domain.GeoPoint, radiusMeters float64) (*domain.DetectionResult, error) {
	if radiusMeters <= 0 {
		radiusMeters = 100
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(center.Lat, center.Lon, radiusMeters)
	edgeMap, err := s.edges.DetectEdges(ctx, domain.Bounds{
		MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon,
	})
	if err != nil {
		return nil, fmt.Errorf("detect edges: %w", err)
	}

	var bestLoop domain.Polygon
	bestScore := math.Inf(-1)

	for _, cluster := range clusterEdges(edgeMap.Points, clusterRadiusMeters) {
		if len(cluster) < minLoopEdges {
			continue
		}
		loop := chainNearestNeighbour(cluster)
		score := scoreLoop(loop, cluster, center, radiusMeters)
		if score > bestScore {
			bestScore = score
			bestLoop = loop
		}
	}

	if bestLoop == nil {
		return &domain.DetectionResult{
			Polygon:    fallbackSquare(center),
			Confidence: 0.25,
			Fallback:   true,
		}, nil
	}

	// Normalize: max achievable score is 1 (confidence) + 1 (proximity)
	// + 0.4 (right angles) + 0.5 (area bonus).
	return &domain.DetectionResult{
		Polygon:    bestLoop,
		Confidence: clamp01(bestScore / 2.9),
	}, nil
}

// clusterEdges groups edges by single-linkage proximity: an edge joins
// a cluster when it is within radius of any member.
func clusterEdges(edges []domain.EdgePoint, radiusMeters float64) [][]domain.EdgePoint {
	visited := make([]bool, len(edges))
	var clusters [][]domain.EdgePoint

	for seed := range edges {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		cluster := []domain.EdgePoint{edges[seed]}

		// Breadth-first expansion over unvisited neighbours.
		for cursor := 0; cursor < len(cluster); cursor++ {
			cur := cluster[cursor].Location
			for i := range edges {
				if visited[i] {
					continue
				}
				loc := edges[i].Location
				if geospatial.Haversine(cur.Lat, cur.Lon, loc.Lat, loc.Lon) <= radiusMeters {
					visited[i] = true
					cluster = append(cluster, edges[i])
				}
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// chainNearestNeighbour orders a cluster into a polygon by repeatedly
// walking to the nearest unused edge.
func chainNearestNeighbour(cluster []domain.EdgePoint) domain.Polygon {
	used := make([]bool, len(cluster))
	loop := make(domain.Polygon, 0, len(cluster))

	cur := 0
	used[0] = true
	loop = append(loop, cluster[0].Location)

	for range cluster[1:] {
		next := -1
		nextDist := math.Inf(1)
		for i := range cluster {
			if used[i] {
				continue
			}
			d := geospatial.Haversine(
				cluster[cur].Location.Lat, cluster[cur].Location.Lon,
				cluster[i].Location.Lat, cluster[i].Location.Lon,
			)
			if d < nextDist {
				nextDist = d
				next = i
			}
		}
		if next < 0 {
			break
		}
		used[next] = true
		loop = append(loop, cluster[next].Location)
		cur = next
	}
	return loop
}

// scoreLoop rates a candidate boundary loop. Components:
// mean edge confidence (0–1), proximity of the loop centroid to the
// search center (0–1), right-angle count (0.1 each, capped at 0.4),
// and a 0.5 bonus for a plausible lot area.
func scoreLoop(loop domain.Polygon, cluster []domain.EdgePoint, center domain.GeoPoint, radiusMeters float64) float64 {
	var sumConf float64
	for _, e := range cluster {
		sumConf += e.Confidence
	}
	meanConf := sumConf / float64(len(cluster))

	centroid := geospatial.Centroid(loop)
	dist := geospatial.Haversine(centroid.Lat, centroid.Lon, center.Lat, center.Lon)
	proximity := math.Max(0, 1-dist/radiusMeters)

	raScore := math.Min(0.4, 0.1*float64(rightAngleCount(loop)))

	var areaBonus float64
	if area := geospatial.PolygonAreaSqMeters(loop); area >= plausibleAreaMin && area <= plausibleAreaMax {
		areaBonus = 0.5
	}

	return meanConf + proximity + raScore + areaBonus
}

func fallbackSquare(center domain.GeoPoint) domain.Polygon {
	h := fallbackHalfSideMeters
	return domain.Polygon{
		geospatial.OffsetMeters(center, -h, -h),
		geospatial.OffsetMeters(center, -h, h),
		geospatial.OffsetMeters(center, h, h),
		geospatial.OffsetMeters(center, h, -h),
	}
}
