package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tourloop/planner/internal/model"
)

// CellCacheRepository caches the full set of POIs belonging to an H3 cell in
// Redis, falling back to Postgres on a miss — the same fast-path/slow-path
// shape the teacher uses for surge-pricing demand/supply counts. One entry
// per (resolution, cell) is the cross-category superset spec.md §3/§6
// describes; callers filter by category themselves.
type CellCacheRepository struct {
	redis *redis.Client
	pois  *POIRepository
	ttl   time.Duration
}

// NewCellCacheRepository creates a cell-cache repository. ttl is the Redis
// entry lifetime (PlannerConfig.CellCacheTTL).
func NewCellCacheRepository(redisClient *redis.Client, pois *POIRepository, ttl time.Duration) *CellCacheRepository {
	return &CellCacheRepository{redis: redisClient, pois: pois, ttl: ttl}
}

const cellCacheKeyPrefix = "h3:"

// cellCacheKey builds the spec.md §6 literal key `h3:<resolution>:<cell_id>`.
func cellCacheKey(resolution int, cell string) string {
	return fmt.Sprintf("%s%d:%s", cellCacheKeyPrefix, resolution, cell)
}

// GetCell returns every POI summary cached for an H3 cell, and whether the
// cache was hit.
func (r *CellCacheRepository) GetCell(ctx context.Context, resolution int, cell string) ([]model.POISummary, bool) {
	raw, err := r.redis.Get(ctx, cellCacheKey(resolution, cell)).Bytes()
	if err != nil {
		return nil, false
	}
	var summaries []model.POISummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return nil, false
	}
	return summaries, true
}

// SetCell populates the cache entry for an H3 cell with every POI in it
// (not filtered by category), renewing the TTL.
func (r *CellCacheRepository) SetCell(ctx context.Context, resolution int, cell string, summaries []model.POISummary) error {
	raw, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("cell cache: marshal: %w", err)
	}
	if err := r.redis.Set(ctx, cellCacheKey(resolution, cell), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cell cache: set: %w", err)
	}
	return nil
}

// LoadFromBoundingBox is the slow path: it queries Postgres for every POI in
// the bounding box, across all categories, and projects them down to
// POISummary, ready for caching as the cell's full superset.
func (r *CellCacheRepository) LoadFromBoundingBox(
	ctx context.Context,
	minLat, maxLat, minLon, maxLon float64,
) ([]model.POISummary, error) {
	pois, err := r.pois.FindInBoundingBox(ctx, minLat, maxLat, minLon, maxLon, "")
	if err != nil {
		return nil, fmt.Errorf("cell cache: load from bounding box: %w", err)
	}
	out := make([]model.POISummary, 0, len(pois))
	for _, p := range pois {
		out = append(out, model.POISummary{
			ID:        p.ID,
			Lat:       p.Lat,
			Lon:       p.Lon,
			Category:  p.Category,
			Rating:    p.Rating,
			OpenHours: p.OpenHours,
		})
	}
	return out, nil
}

// InvalidateCell clears a cached cell entry (e.g., after a POI update).
func (r *CellCacheRepository) InvalidateCell(ctx context.Context, resolution int, cell string) {
	_ = r.redis.Del(ctx, cellCacheKey(resolution, cell)).Err()
}
