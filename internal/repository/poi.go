// Package repository provides database access for the itinerary planning
// engine: bounding-box reads backing the spatial candidate source
// (C3), id-batch hydration, and a pgvector cosine-distance top-k query
// backing the semantic candidate source (C4).
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tourloop/planner/internal/model"
)

// DefaultQueryTimeout bounds a single POI store round trip.
const DefaultQueryTimeout = 60 * time.Second

// POIRepository provides database access for points of interest.
type POIRepository struct {
	pool *pgxpool.Pool
}

// NewPOIRepository creates a repository backed by the given pool.
func NewPOIRepository(pool *pgxpool.Pool) *POIRepository {
	return &POIRepository{pool: pool}
}

const poiColumns = `id, name, lat, lon, address, poi_type, normalize_stars_reviews, open_hours`

func scanPOI(row pgx.Row) (*model.POI, error) {
	p := &model.POI{}
	var openHours []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Lat, &p.Lon, &p.Address, &p.Category, &p.Rating, &openHours); err != nil {
		return nil, err
	}
	if len(openHours) > 0 {
		h, err := unmarshalOpeningHours(openHours)
		if err != nil {
			return nil, fmt.Errorf("poi %s: decode open_hours: %w", p.ID, err)
		}
		p.OpenHours = h
	}
	return p, nil
}

// GetByID fetches a single POI by id.
func (r *POIRepository) GetByID(ctx context.Context, id string) (*model.POI, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM pois WHERE id = $1`, poiColumns)
	row := r.pool.QueryRow(ctx, query, id)
	p, err := scanPOI(row)
	if err != nil {
		return nil, fmt.Errorf("get poi %s: %w", id, err)
	}
	return p, nil
}

// GetByIDs hydrates a batch of POIs in one round trip. Missing ids are
// silently omitted from the result.
func (r *POIRepository) GetByIDs(ctx context.Context, ids []string) ([]model.POI, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM pois WHERE id = ANY($1)`, poiColumns)
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get pois by ids: %w", err)
	}
	defer rows.Close()

	var out []model.POI
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, fmt.Errorf("get pois by ids: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// FindInBoundingBox returns every POI whose coordinate falls within
// [minLat,maxLat] x [minLon,maxLon], optionally filtered to a category.
// Backs the spatial candidate source's Postgres fallback when the H3 cell
// cache misses (spec.md §4.3).
func (r *POIRepository) FindInBoundingBox(
	ctx context.Context,
	minLat, maxLat, minLon, maxLon float64,
	category string,
) ([]model.POI, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM pois
		WHERE lat BETWEEN $1 AND $2
		  AND lon BETWEEN $3 AND $4
		  AND ($5 = '' OR poi_type = $5)`, poiColumns)

	rows, err := r.pool.Query(ctx, query, minLat, maxLat, minLon, maxLon, category)
	if err != nil {
		return nil, fmt.Errorf("find pois in bounding box: %w", err)
	}
	defer rows.Close()

	var out []model.POI
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, fmt.Errorf("find pois in bounding box: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SemanticSearch runs a pgvector cosine-distance top-k query against the
// embedding column, optionally restricted to idFilter (used when a route
// already fixes a candidate pool and the semantic source only needs to rank
// within it). Backs C4.
func (r *POIRepository) SemanticSearch(
	ctx context.Context,
	queryVec []float32,
	topK int,
	idFilter []string,
) ([]model.POI, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	vec := pgvector.NewVector(queryVec)

	var rows pgx.Rows
	var err error
	if len(idFilter) > 0 {
		query := fmt.Sprintf(`
			SELECT %s, 1 - (embedding <=> $1) AS similarity FROM pois
			WHERE id = ANY($2) AND embedding IS NOT NULL
			ORDER BY embedding <=> $1
			LIMIT $3`, poiColumns)
		rows, err = r.pool.Query(ctx, query, vec, idFilter, topK)
	} else {
		query := fmt.Sprintf(`
			SELECT %s, 1 - (embedding <=> $1) AS similarity FROM pois
			WHERE embedding IS NOT NULL
			ORDER BY embedding <=> $1
			LIMIT $2`, poiColumns)
		rows, err = r.pool.Query(ctx, query, vec, topK)
	}
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	var out []model.POI
	for rows.Next() {
		p := &model.POI{}
		var openHours []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Lat, &p.Lon, &p.Address, &p.Category, &p.Rating, &openHours, &p.Similarity); err != nil {
			return nil, fmt.Errorf("semantic search: scan: %w", err)
		}
		if len(openHours) > 0 {
			h, err := unmarshalOpeningHours(openHours)
			if err != nil {
				return nil, fmt.Errorf("semantic search: poi %s: decode open_hours: %w", p.ID, err)
			}
			p.OpenHours = h
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpsertEmbedding stores (or replaces) the embedding vector for a POI.
func (r *POIRepository) UpsertEmbedding(ctx context.Context, id string, vec []float32) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `UPDATE pois SET embedding = $1 WHERE id = $2`, pgvector.NewVector(vec), id)
	if err != nil {
		return fmt.Errorf("upsert embedding for poi %s: %w", id, err)
	}
	return nil
}
