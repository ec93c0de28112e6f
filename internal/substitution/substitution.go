// Package substitution implements the single-POI substitution protocol
// (C9): proposing replacement candidates for one stop in a cached route,
// and atomically confirming a chosen replacement.
package substitution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tourloop/planner/config"
	"github.com/tourloop/planner/internal/geo"
	"github.com/tourloop/planner/internal/hours"
	"github.com/tourloop/planner/internal/model"
	"github.com/tourloop/planner/internal/repository"
	"github.com/tourloop/planner/internal/routecache"
)

var (
	// ErrUserNotFound is returned when the user has no cache entry.
	ErrUserNotFound = errors.New("substitution: no cache entry for user")
	// ErrRouteNotFound is returned when route_id isn't present in the user's entry.
	ErrRouteNotFound = errors.New("substitution: route not found")
	// ErrPOINotFound is returned when old_poi_id isn't present in the named route.
	ErrPOINotFound = errors.New("substitution: poi not found in route")
	// ErrNoCandidates is returned when the substitution pool is empty after exclusions.
	ErrNoCandidates = errors.New("substitution: no candidates available after exclusions")
	// ErrConflict is returned by Confirm when a concurrent confirm already moved the POI.
	ErrConflict = errors.New("substitution: conflict, old poi no longer at expected position")

	// referenceDistanceFloorM is the smallest reference distance used in
	// the normalized-distance term: candidates whose reference distance is
	// below it all receive the same distance score.
	referenceDistanceFloorM = 200.0
)

// Service implements replace_poi and confirm_replace (spec.md §4.9).
type Service struct {
	cache   *routecache.Cache
	pois    *repository.POIRepository
	planner config.PlannerConfig
}

// NewService builds a substitution service.
func NewService(cache *routecache.Cache, pois *repository.POIRepository, planner config.PlannerConfig) *Service {
	return &Service{cache: cache, pois: pois, planner: planner}
}

// Candidate is one proposed replacement, annotated with the incident-leg
// deltas the caller needs to show the user before they confirm (spec.md
// §4.9 step 4: distance/time deltas for the two legs touching the
// replaced stop, relative to the POI it would replace).
type Candidate struct {
	POI               model.POI
	Score             float64
	DistanceFromPrevM float64
	DistanceToNextM   float64
	TravelFromPrevMin float64
	TravelToNextMin   float64

	DeltaDistanceFromPrevM float64
	DeltaDistanceToNextM   float64
	DeltaTravelFromPrevMin float64
	DeltaTravelToNextMin   float64
}

// ReplacePOI proposes up to topK replacement candidates for oldPOIID within
// routeID in the given user's cached entry (spec.md §4.9 replace_poi).
func (s *Service) ReplacePOI(
	ctx context.Context,
	userID, routeID, oldPOIID string,
	userLocation model.Location,
	mode model.Mode,
	topK int,
	currentTime *time.Time,
) ([]Candidate, error) {
	entry, err := s.cache.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, routecache.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("substitution: load cache: %w", err)
	}

	members, ok := entry.Routes[routeID]
	if !ok {
		return nil, ErrRouteNotFound
	}

	targetIdx := -1
	for i, m := range members {
		if m.POIID == oldPOIID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, ErrPOINotFound
	}
	category := members[targetIdx].Category

	routePOIs, err := s.hydrateMembers(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("substitution: hydrate route: %w", err)
	}

	modeCfg := s.planner.Modes[mode]

	// available[category] - (already_substituted[category] ∪ every poi id
	// currently present in any route) -- spec.md §4.9 step 2.
	excluded := entry.AllRouteMemberIDs()
	if sub, ok := entry.AlreadySubstituted[category]; ok {
		for id := range sub {
			excluded[id] = true
		}
	}

	var poolIDs []string
	for id := range entry.Available[category] {
		if !excluded[id] {
			poolIDs = append(poolIDs, id)
		}
	}
	if len(poolIDs) == 0 {
		return nil, ErrNoCandidates
	}

	candidatePOIs, err := s.pois.GetByIDs(ctx, poolIDs)
	if err != nil {
		return nil, fmt.Errorf("substitution: hydrate candidates: %w", err)
	}

	prevLoc := userLocation
	if targetIdx > 0 {
		prevLoc = routePOIs[targetIdx-1].Location()
	}
	var nextLoc model.Location
	hasNext := targetIdx < len(members)-1
	if hasNext {
		nextLoc = routePOIs[targetIdx+1].Location()
	}

	// the old POI's own incident-leg measurements, used below to annotate
	// every candidate with a delta relative to what it would replace.
	oldLoc := routePOIs[targetIdx].Location()
	oldDistPrev := geo.HaversineM(prevLoc, oldLoc)
	oldTravelPrev := geo.TravelTimeMinutes(oldDistPrev, modeCfg.SpeedKmph)
	var oldDistNext, oldTravelNext float64
	if hasNext {
		oldDistNext = geo.HaversineM(oldLoc, nextLoc)
		oldTravelNext = geo.TravelTimeMinutes(oldDistNext, modeCfg.SpeedKmph)
	}

	// cumulative arrival time at the stop just before targetIdx, used to
	// project the candidate's own arrival instant (spec.md §4.9 step 3).
	var arrivalAtPrev time.Time
	if currentTime != nil {
		arrivalAtPrev = *currentTime
		cursor := userLocation
		for i := 0; i < targetIdx; i++ {
			leg := geo.HaversineM(cursor, routePOIs[i].Location())
			arrivalAtPrev = arrivalAtPrev.Add(time.Duration(geo.TravelTimeMinutes(leg, modeCfg.SpeedKmph) * float64(time.Minute)))
			arrivalAtPrev = arrivalAtPrev.Add(time.Duration(s.planner.StayMinutes(routePOIs[i].Category) * float64(time.Minute)))
			cursor = routePOIs[i].Location()
		}
	}

	var out []Candidate
	for _, p := range candidatePOIs {
		distPrev := geo.HaversineM(prevLoc, p.Location())

		if currentTime != nil {
			projected := arrivalAtPrev.Add(time.Duration(geo.TravelTimeMinutes(distPrev, modeCfg.SpeedKmph) * float64(time.Minute)))
			if !hours.IsOpenAt(p.OpenHours, projected) {
				continue
			}
		}

		distNext := 0.0
		if hasNext {
			distNext = geo.HaversineM(p.Location(), nextLoc)
		}
		refDist := distPrev
		if hasNext {
			refDist = (distPrev + distNext) / 2
		}
		if refDist < referenceDistanceFloorM {
			refDist = referenceDistanceFloorM
		}

		normalizedDist := geo.Clamp01(refDist / maxReferenceDistance(modeCfg))
		score := 0.6*p.Rating + 0.4*(1-normalizedDist)

		travelPrev := geo.TravelTimeMinutes(distPrev, modeCfg.SpeedKmph)
		c := Candidate{
			POI:                    p,
			Score:                  score,
			DistanceFromPrevM:      distPrev,
			DistanceToNextM:        distNext,
			TravelFromPrevMin:      travelPrev,
			DeltaDistanceFromPrevM: distPrev - oldDistPrev,
			DeltaTravelFromPrevMin: travelPrev - oldTravelPrev,
		}
		if hasNext {
			travelNext := geo.TravelTimeMinutes(distNext, modeCfg.SpeedKmph)
			c.TravelToNextMin = travelNext
			c.DeltaDistanceToNextM = distNext - oldDistNext
			c.DeltaTravelToNextMin = travelNext - oldTravelNext
		}
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, ErrNoCandidates
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].POI.ID < out[j].POI.ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// ConfirmReplace atomically swaps oldPOIID for newPOIID within routeID in
// the user's cached entry (spec.md §4.9 confirm_replace). Returns
// ErrConflict if a concurrent confirm already moved oldPOIID.
func (s *Service) ConfirmReplace(ctx context.Context, userID, routeID, oldPOIID, newPOIID string) (*model.UserCacheEntry, error) {
	entry, err := s.cache.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, routecache.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("substitution: load cache: %w", err)
	}

	members, ok := entry.Routes[routeID]
	if !ok {
		return nil, ErrRouteNotFound
	}

	targetIdx := -1
	for i, m := range members {
		if m.POIID == oldPOIID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, ErrConflict
	}

	category := members[targetIdx].Category
	members[targetIdx] = model.RouteMember{POIID: newPOIID, Category: category}
	entry.Routes[routeID] = members

	if entry.AlreadySubstituted[category] == nil {
		entry.AlreadySubstituted[category] = make(map[string]bool)
	}
	entry.AlreadySubstituted[category][oldPOIID] = true

	if avail, ok := entry.Available[category]; ok {
		delete(avail, newPOIID)
	}

	if err := s.cache.Set(ctx, userID, entry); err != nil {
		return nil, fmt.Errorf("substitution: persist: %w", err)
	}
	return entry, nil
}

// hydrateMembers fetches full POI records for every member of a cached
// route, in order, so neighbor coordinates and categories are available for
// scoring and arrival projection.
func (s *Service) hydrateMembers(ctx context.Context, members []model.RouteMember) ([]model.POI, error) {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.POIID
	}
	pois, err := s.pois.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.POI, len(pois))
	for _, p := range pois {
		byID[p.ID] = p
	}
	out := make([]model.POI, len(members))
	for i, m := range members {
		out[i] = byID[m.POIID]
	}
	return out, nil
}

func maxReferenceDistance(modeCfg config.ModeConfig) float64 {
	if modeCfg.RadiusM > 0 {
		return modeCfg.RadiusM
	}
	return 2000
}
