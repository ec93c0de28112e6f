// Package spatial implements the spatial candidate source (C3): given a
// point and a transportation mode, return nearby POIs via H3 hexagonal cell
// indexing, backed by a Redis cell cache with a Postgres fallback.
package spatial

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/tourloop/planner/config"
	"github.com/tourloop/planner/internal/geo"
	"github.com/tourloop/planner/internal/hours"
	"github.com/tourloop/planner/internal/model"
	"github.com/tourloop/planner/internal/repository"
)

// Source produces spatial candidates for a (lat, lon, mode) query.
type Source struct {
	cells   *repository.CellCacheRepository
	planner config.PlannerConfig
}

// NewSource builds a spatial candidate source.
func NewSource(cells *repository.CellCacheRepository, planner config.PlannerConfig) *Source {
	return &Source{cells: cells, planner: planner}
}

// Result is the outcome of a spatial_candidates call: the candidate pool
// plus the effective radius actually used to produce it (spec.md §4.3).
type Result struct {
	Candidates    []model.POISummary
	EffectiveRadiusM float64
}

// Candidates returns POI summaries near (lat, lon) for mode, optionally
// restricted to an opening-hours window and a category filter.
func (s *Source) Candidates(
	ctx context.Context,
	center model.Location,
	mode model.Mode,
	category string,
	window *TimeWindow,
) (Result, error) {
	modeCfg, ok := s.planner.Modes[mode]
	if !ok {
		return Result{}, fmt.Errorf("spatial: unknown mode %q", mode)
	}

	cell := h3.LatLngToCell(h3.LatLng{Lat: center.Lat, Lng: center.Lon}, s.planner.H3Resolution)

	k := modeCfg.KRing
	radius := modeCfg.RadiusM

	seen := make(map[string]bool)
	var pooled []model.POISummary

	for {
		ring, err := h3.GridDisk(cell, k)
		if err != nil {
			return Result{}, fmt.Errorf("spatial: grid disk: %w", err)
		}

		pooled = pooled[:0]
		for id := range seen {
			delete(seen, id)
		}

		for _, c := range ring {
			summaries, err := s.loadCell(ctx, c)
			if err != nil {
				return Result{}, err
			}
			for _, p := range summaries {
				if seen[p.ID] {
					continue
				}
				if category != "" && p.Category != category {
					continue
				}
				d := geo.HaversineM(center, model.Location{Lat: p.Lat, Lon: p.Lon})
				if d > radius {
					continue
				}
				if window != nil && !hours.OverlapsWindow(p.OpenHours, window.Start, window.End) {
					continue
				}
				seen[p.ID] = true
				pooled = append(pooled, p)
			}
		}

		if !s.planner.ProgressiveExpand || len(pooled) >= s.planner.MaxCandidatesFloor || k >= s.planner.MaxKRingCap {
			break
		}
		k++
		radius = radius * 1.5
	}

	sort.Slice(pooled, func(i, j int) bool {
		di := geo.HaversineM(center, model.Location{Lat: pooled[i].Lat, Lon: pooled[i].Lon})
		dj := geo.HaversineM(center, model.Location{Lat: pooled[j].Lat, Lon: pooled[j].Lon})
		return di < dj
	})

	return Result{Candidates: pooled, EffectiveRadiusM: radius}, nil
}

// TimeWindow bounds a [Start, End] instant range used to filter candidates
// by opening-hours overlap.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// loadCell returns every POI summary in a single H3 cell, across all
// categories, reading the Redis cache first and falling back to the
// Postgres bounding-box query on a miss (spec.md §4.3). The cache entry is
// the cross-category superset for the cell; callers filter by category.
func (s *Source) loadCell(ctx context.Context, cell h3.Cell) ([]model.POISummary, error) {
	key := cell.String()

	if summaries, ok := s.cells.GetCell(ctx, s.planner.H3Resolution, key); ok {
		return summaries, nil
	}

	minLat, maxLat, minLon, maxLon := cellBoundingBox(cell)
	summaries, err := s.cells.LoadFromBoundingBox(ctx, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("spatial: load cell %s: %w", key, err)
	}

	_ = s.cells.SetCell(ctx, s.planner.H3Resolution, key, summaries)
	return summaries, nil
}

// cellBoundingBox returns the lat/lon bounding box enclosing an H3 cell's
// hexagonal boundary.
func cellBoundingBox(cell h3.Cell) (minLat, maxLat, minLon, maxLon float64) {
	boundary := cell.Boundary()
	minLat, maxLat = boundary[0].Lat, boundary[0].Lat
	minLon, maxLon = boundary[0].Lng, boundary[0].Lng
	for _, v := range boundary[1:] {
		if v.Lat < minLat {
			minLat = v.Lat
		}
		if v.Lat > maxLat {
			maxLat = v.Lat
		}
		if v.Lng < minLon {
			minLon = v.Lng
		}
		if v.Lng > maxLon {
			maxLon = v.Lng
		}
	}
	return minLat, maxLat, minLon, maxLon
}
