// Package orchestrator composes the full itinerary-planning pipeline
// (C10): query expansion, spatial and semantic candidate sourcing, route
// construction, arrival validation, and per-user cache persistence. It
// also owns replace_full_route, which reruns that pipeline for a single
// cached route, and visited_pois.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tourloop/planner/config"
	"github.com/tourloop/planner/internal/model"
	"github.com/tourloop/planner/internal/query"
	"github.com/tourloop/planner/internal/repository"
	"github.com/tourloop/planner/internal/route"
	"github.com/tourloop/planner/internal/routecache"
	"github.com/tourloop/planner/internal/semantic"
	"github.com/tourloop/planner/internal/spatial"
	"github.com/tourloop/planner/internal/workerpool"
)

// ErrInvalidMode is returned when the requested mode has no configured
// speed/k-ring/radius table entry.
var ErrInvalidMode = errors.New("orchestrator: unknown mode")

// Orchestrator composes every collaborator into the search_routes,
// replace_full_route, and visited_pois operations (spec.md §4.10).
type Orchestrator struct {
	spatialSrc  *spatial.Source
	semanticSrc *semantic.Source
	builder     *route.Builder
	pois        *repository.POIRepository
	cache       *routecache.Cache
	pool        *workerpool.Pool
	planner     config.PlannerConfig
}

// New builds an orchestrator wired to every planning collaborator.
func New(
	spatialSrc *spatial.Source,
	semanticSrc *semantic.Source,
	builder *route.Builder,
	pois *repository.POIRepository,
	cache *routecache.Cache,
	pool *workerpool.Pool,
	planner config.PlannerConfig,
) *Orchestrator {
	return &Orchestrator{
		spatialSrc:  spatialSrc,
		semanticSrc: semanticSrc,
		builder:     builder,
		pois:        pois,
		cache:       cache,
		pool:        pool,
		planner:     planner,
	}
}

// SearchRequest is the inbound shape of search_routes (spec.md §6).
type SearchRequest struct {
	UserID         string
	Location       model.Location
	Mode           model.Mode
	Query          string
	CurrentTime    *time.Time
	MaxTimeMinutes float64
	TargetPlaces   int
	MaxRoutes      int
	TopKSemantic   int
	CustomerLike   bool
	DeleteCache    bool
	ReplaceRoute   string // empty means "plan fresh routes appended/filled from 1"
}

// SearchResponse is the outbound shape of search_routes.
type SearchResponse struct {
	Routes           []model.Route
	TimingBreakdownMS map[string]int64
	Warnings         []string
}

// SearchRoutes runs the full C5 → C3+C4 → C6 → C7 pipeline and persists the
// result into the user's cache entry (spec.md §4.10, §6).
func (o *Orchestrator) SearchRoutes(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if _, ok := o.planner.Modes[req.Mode]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if req.MaxRoutes <= 0 {
		req.MaxRoutes = 1
	}
	if req.TargetPlaces <= 0 {
		req.TargetPlaces = 1
	}

	timing := map[string]int64{}

	if req.DeleteCache {
		if err := o.cache.Delete(ctx, req.UserID); err != nil {
			return nil, fmt.Errorf("orchestrator: delete_cache: %w", err)
		}
	}

	entry, err := o.cache.Get(ctx, req.UserID)
	if err != nil {
		if !errors.Is(err, routecache.ErrNotFound) {
			return nil, fmt.Errorf("orchestrator: load cache: %w", err)
		}
		entry = model.NewUserCacheEntry(req.Mode)
	}

	expanded := query.Expand(
		req.Query,
		req.CustomerLike,
		req.CurrentTime,
		time.Duration(req.MaxTimeMinutes*float64(time.Minute)),
		query.Window{
			LunchStart:  o.planner.LunchWindowStart,
			LunchEnd:    o.planner.LunchWindowEnd,
			DinnerStart: o.planner.DinnerWindowStart,
			DinnerEnd:   o.planner.DinnerWindowEnd,
		},
	)

	pool, warnings, err := o.buildCandidatePool(ctx, req, expanded)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return &SearchResponse{Routes: nil, TimingBreakdownMS: timing, Warnings: append(warnings, "no candidates available for the requested query and location")}, nil
	}

	routeIDs := o.resolveRouteIDs(entry, req)

	built, err := workerpool.Submit(ctx, o.pool, func() ([]model.Route, error) {
		return o.builder.Build(ctx, route.BuildInput{
			User:         req.Location,
			Mode:         req.Mode,
			Pool:         pool,
			TMaxMinutes:  req.MaxTimeMinutes,
			N:            req.TargetPlaces,
			R:            len(routeIDs),
			CurrentTime:  req.CurrentTime,
			MealAnchored: expanded.MealAnchored,
			MealWindow:   mealWindow(req.CurrentTime, expanded, o.planner),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build routes: %w", err)
	}

	poiByID := make(map[string]model.POI, len(pool))
	for _, p := range pool {
		poiByID[p.ID] = p
	}
	openHours := func(poiID string) *model.OpeningHours {
		return poiByID[poiID].OpenHours
	}

	now := time.Now()
	if req.CurrentTime != nil {
		now = *req.CurrentTime
	}
	built, err = workerpool.Submit(ctx, o.pool, func() ([]model.Route, error) {
		for i := range built {
			built[i] = route.Validate(built[i], now, openHours)
		}
		return built, nil
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: validate routes: %w", err)
	}
	for i := range built {
		if !built[i].IsValidTiming {
			warnings = append(warnings, built[i].Warnings...)
		}
	}

	for i, r := range built {
		if i >= len(routeIDs) {
			break
		}
		id := routeIDs[i]
		r.RouteID = id
		built[i] = r
		entry.Routes[id] = membersOf(r)
	}

	for _, p := range pool {
		if entry.Available[p.Category] == nil {
			entry.Available[p.Category] = make(map[string]bool)
		}
		entry.Available[p.Category][p.ID] = true
	}

	if err := o.cache.Set(ctx, req.UserID, entry); err != nil {
		return nil, fmt.Errorf("orchestrator: persist cache: %w", err)
	}

	return &SearchResponse{Routes: built, TimingBreakdownMS: timing, Warnings: warnings}, nil
}

// ReplaceFullRouteRequest is the inbound shape of replace_full_route.
type ReplaceFullRouteRequest struct {
	UserID         string
	RouteID        string
	NewQuery       string
	Location       model.Location
	Mode           model.Mode
	MaxTimeMinutes float64
	TargetPlaces   int
	CurrentTime    *time.Time
}

// ReplaceFullRoute reruns the full pipeline for a new query and overwrites
// a single route_id in the user's cached entry, leaving every other route
// untouched (spec.md §4.9 replace_full_route).
func (o *Orchestrator) ReplaceFullRoute(ctx context.Context, req ReplaceFullRouteRequest) (*model.Route, error) {
	resp, err := o.SearchRoutes(ctx, SearchRequest{
		UserID:         req.UserID,
		Location:       req.Location,
		Mode:           req.Mode,
		Query:          req.NewQuery,
		CurrentTime:    req.CurrentTime,
		MaxTimeMinutes: req.MaxTimeMinutes,
		TargetPlaces:   req.TargetPlaces,
		MaxRoutes:      1,
		TopKSemantic:   o.planner.MaxCandidatesFloor,
		ReplaceRoute:   req.RouteID,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("orchestrator: replace_full_route produced no route")
	}
	return &resp.Routes[0], nil
}

// VisitedPOIs returns the POI ids previously marked visited for userID by
// the external visit-tracking collaborator named in spec.md §6. This
// module has no visit-tracking store of its own; it is expected to be
// injected as a Postgres-backed collaborator once that system exists, so
// for now it reports an empty list rather than fabricating state.
func (o *Orchestrator) VisitedPOIs(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

// buildCandidatePool runs C3 (spatial) once per expanded category and C4
// (semantic) once over the raw query text, and returns the deduplicated
// union.
func (o *Orchestrator) buildCandidatePool(
	ctx context.Context,
	req SearchRequest,
	expanded query.Expanded,
) ([]model.POI, []string, error) {
	var warnings []string
	seen := make(map[string]bool)
	var pool []model.POI

	var window *spatial.TimeWindow
	if req.CurrentTime != nil {
		window = &spatial.TimeWindow{
			Start: *req.CurrentTime,
			End:   req.CurrentTime.Add(time.Duration(req.MaxTimeMinutes * float64(time.Minute))),
		}
	}

	for _, category := range expanded.Categories {
		spatialResult, err := o.spatialSrc.Candidates(ctx, req.Location, req.Mode, category, window)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: spatial candidates for %q: %w", category, err)
		}
		if len(spatialResult.Candidates) == 0 {
			warnings = append(warnings, fmt.Sprintf("no spatial candidates found for category %q within the effective radius", category))
		}

		ids := make([]string, 0, len(spatialResult.Candidates))
		for _, s := range spatialResult.Candidates {
			ids = append(ids, s.ID)
		}
		hydrated, err := o.pois.GetByIDs(ctx, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: hydrate spatial candidates: %w", err)
		}
		for _, p := range hydrated {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			pool = append(pool, p)
		}
	}

	if req.Query != "" && req.TopKSemantic > 0 {
		semanticResults, err := o.semanticSrc.Candidates(ctx, req.Query, req.TopKSemantic, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: semantic candidates: %w", err)
		}
		for _, p := range semanticResults {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			pool = append(pool, p)
		}
	}

	return pool, warnings, nil
}

// resolveRouteIDs decides which route ids this search_routes call will
// populate: replace_route overwrites a single named id; otherwise ids are
// allocated sequentially from the entry's NextRouteID counter, up to
// req.MaxRoutes (spec.md §4.10).
func (o *Orchestrator) resolveRouteIDs(entry *model.UserCacheEntry, req SearchRequest) []string {
	if req.ReplaceRoute != "" {
		return []string{req.ReplaceRoute}
	}
	ids := make([]string, 0, req.MaxRoutes)
	for i := 0; i < req.MaxRoutes; i++ {
		ids = append(ids, strconv.Itoa(entry.NextRouteID))
		entry.NextRouteID++
	}
	return ids
}

// membersOf projects a built route down to the lean (poi_id, category)
// pairs the per-user cache entry stores (spec.md §3).
func membersOf(r model.Route) []model.RouteMember {
	members := make([]model.RouteMember, len(r.Stops))
	for i, s := range r.Stops {
		members[i] = model.RouteMember{POIID: s.POIID, Category: s.Category}
	}
	return members
}

// mealWindow resolves the active meal window (lunch or dinner, whichever
// was anchored) into concrete instants on the request's current date.
func mealWindow(currentTime *time.Time, expanded query.Expanded, planner config.PlannerConfig) *route.TimeRange {
	if currentTime == nil || !expanded.MealAnchored {
		return nil
	}
	startStr, endStr := planner.LunchWindowStart, planner.LunchWindowEnd
	if expanded.MealAnchorReason == "dinner" {
		startStr, endStr = planner.DinnerWindowStart, planner.DinnerWindowEnd
	}
	start, ok1 := parseHHMMOnDate(startStr, *currentTime)
	end, ok2 := parseHHMMOnDate(endStr, *currentTime)
	if !ok1 || !ok2 {
		return nil
	}
	return &route.TimeRange{Start: start, End: end}
}

func parseHHMMOnDate(hhmm string, date time.Time) (time.Time, bool) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, date.Location()), true
}
