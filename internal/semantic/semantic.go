// Package semantic implements the semantic candidate source (C4): embed a
// free-text query, run a cosine-similarity nearest-neighbor search against
// the POI vector index, and hydrate the results.
package semantic

import (
	"context"
	"fmt"

	"github.com/tourloop/planner/internal/embedding"
	"github.com/tourloop/planner/internal/model"
	"github.com/tourloop/planner/internal/repository"
)

// Source produces semantic candidates for a free-text query.
type Source struct {
	embed *embedding.Client
	pois  *repository.POIRepository
}

// NewSource builds a semantic candidate source.
func NewSource(embed *embedding.Client, pois *repository.POIRepository) *Source {
	return &Source{embed: embed, pois: pois}
}

// Candidates embeds text, runs a top-k cosine-similarity search optionally
// restricted to idFilter, and returns hydrated POIs sorted by similarity
// descending (spec.md §4.4).
func (s *Source) Candidates(ctx context.Context, text string, topK int, idFilter []string) ([]model.POI, error) {
	vec, err := s.embed.Embed(ctx, text, embedding.KindQuery)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}

	results, err := s.pois.SemanticSearch(ctx, vec, topK, idFilter)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}
	return results, nil
}
