// Package route implements the route builder (C6) and arrival validator
// (C7): the greedy, direction-aware tour construction kernel and its
// opening-hours annotation pass.
package route

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tourloop/planner/config"
	"github.com/tourloop/planner/internal/geo"
	"github.com/tourloop/planner/internal/model"
)

// ErrEmptyPool is returned when the candidate pool has no POIs to build from.
var ErrEmptyPool = errors.New("route: candidate pool is empty")

// TimeRange is a half-open [Start, End) instant window, used here to carry
// the active meal window (already resolved to today's lunch or dinner
// instants) into the builder for meal-anchor placement.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// BuildInput is everything the builder needs to construct up to R routes.
type BuildInput struct {
	User         model.Location
	Mode         model.Mode
	Pool         []model.POI // deduplicated union of spatial + semantic candidates
	TMaxMinutes  float64
	N            int
	R            int
	CurrentTime  *time.Time
	MealAnchored bool
	MealWindow   *TimeRange
}

// Builder constructs routes over a candidate pool (C6).
type Builder struct {
	planner config.PlannerConfig
}

// NewBuilder returns a route builder configured from planner settings.
func NewBuilder(planner config.PlannerConfig) *Builder {
	return &Builder{planner: planner}
}

// distanceMatrix holds great-circle distances in meters: index 0 is the
// user's position U; indices 1..len(pool) map to pool[i-1] (spec.md §4.6.1).
type distanceMatrix struct {
	m [][]float64
}

func buildDistanceMatrix(user model.Location, pool []model.POI) distanceMatrix {
	n := len(pool) + 1
	locs := make([]model.Location, n)
	locs[0] = user
	for i, p := range pool {
		locs[i+1] = p.Location()
	}

	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := geo.HaversineM(locs[i], locs[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return distanceMatrix{m: m}
}

func (d distanceMatrix) dist(i, j int) float64 { return d.m[i][j] }

// Build constructs up to in.R routes of up to in.N stops each (spec.md §4.6).
func (b *Builder) Build(ctx context.Context, in BuildInput) ([]model.Route, error) {
	if len(in.Pool) == 0 {
		return nil, ErrEmptyPool
	}

	modeCfg, ok := b.planner.Modes[in.Mode]
	if !ok {
		return nil, errors.New("route: unknown mode")
	}

	matrix := buildDistanceMatrix(in.User, in.Pool)
	globalUsed := make(map[int]bool)

	var routes []model.Route
	for r := 0; r < in.R; r++ {
		select {
		case <-ctx.Done():
			return routes, ctx.Err()
		default:
		}

		avail := availableIndices(len(in.Pool), globalUsed)
		if len(avail) == 0 {
			// Pool exhausted: prefer disjointness but allow repetition to
			// reach R (spec.md §4.6.6 step 6).
			avail = availableIndices(len(in.Pool), nil)
		}

		built := b.buildOneRoute(in, matrix, modeCfg, avail)
		if len(built.stops) == 0 {
			break
		}
		for _, idx := range built.usedIndices {
			globalUsed[idx] = true
		}
		routes = append(routes, built.toModel())
	}

	return routes, nil
}

// builtRoute accumulates a single route under construction.
type builtRoute struct {
	stops         []model.Stop
	usedIndices   []int
	travelMinutes float64
	stayMinutes   float64
	scoreSum      float64
	direction     *turnDirection
}

func (b builtRoute) toModel() model.Route {
	total := b.travelMinutes + b.stayMinutes
	efficiency := 0.0
	if total > 0 {
		efficiency = b.scoreSum / (total / 100)
	}
	dir := ""
	if b.direction != nil {
		dir = b.direction.String()
	}
	return model.Route{
		Stops:             b.stops,
		TravelMinutes:     b.travelMinutes,
		StayMinutes:       b.stayMinutes,
		TotalMinutes:      total,
		CombinedScore:     b.scoreSum,
		Efficiency:        efficiency,
		CircularDirection: dir,
	}
}

func (b *Builder) buildOneRoute(in BuildInput, matrix distanceMatrix, modeCfg config.ModeConfig, avail []int) builtRoute {
	built := builtRoute{}
	used := make(map[int]bool, len(avail))
	remainingBudget := in.TMaxMinutes

	prevPoolIdx := 0 // 0 means "the user's position" in matrix terms
	prevBearing := 0.0
	mealInserted := false
	var cursor time.Time
	haveCursor := in.CurrentTime != nil
	if haveCursor {
		cursor = *in.CurrentTime
	}

	circular := b.planner.UseCircularRouting
	tau := b.planner.CircularAngleToleranceDeg

	appendStop := func(poolIdx int, pos stopPosition, score float64) {
		p := in.Pool[poolIdx]
		d := matrix.dist(prevPoolIdx, poolIdx+1)
		travel := geo.TravelTimeMinutes(d, modeCfg.SpeedKmph)
		stay := b.planner.StayMinutes(p.Category)

		built.stops = append(built.stops, model.Stop{
			POIID:             p.ID,
			Name:              p.Name,
			Category:          p.Category,
			OrderIndex:        len(built.stops),
			TravelFromPrevMin: travel,
			StayMinutes:       stay,
			Score:             score,
			Lat:               p.Lat,
			Lon:               p.Lon,
		})
		built.usedIndices = append(built.usedIndices, poolIdx)
		used[poolIdx] = true
		built.travelMinutes += travel
		built.stayMinutes += stay
		built.scoreSum += score
		remainingBudget -= travel + stay

		if haveCursor {
			cursor = cursor.Add(time.Duration(travel * float64(time.Minute))).Add(time.Duration(stay * float64(time.Minute)))
		}

		if prevPoolIdx != 0 {
			prevBearing = geo.Bearing(in.Pool[prevPoolIdx-1].Location(), p.Location())
		} else {
			prevBearing = geo.Bearing(in.User, p.Location())
		}
		prevPoolIdx = poolIdx + 1
	}

	feasible := func(poolIdx int) (travel, stay float64, ok bool) {
		d := matrix.dist(prevPoolIdx, poolIdx+1)
		travel = geo.TravelTimeMinutes(d, modeCfg.SpeedKmph)
		stay = b.planner.StayMinutes(in.Pool[poolIdx].Category)
		return travel, stay, travel+stay <= remainingBudget
	}

	// ── Step 1: first stop ───────────────────────────────
	var firstCands []scoredCandidate
	for _, idx := range avail {
		if used[idx] {
			continue
		}
		if _, _, ok := feasible(idx); !ok {
			continue
		}
		d := matrix.dist(0, idx+1)
		p := in.Pool[idx]
		s := scoreCandidate(d, modeCfg.RadiusM, p.Similarity, p.Rating, 0, posFirst, circular, false)
		firstCands = append(firstCands, scoredCandidate{poolIndex: idx, score: s, similarity: p.Similarity, rating: p.Rating, id: p.ID})
	}
	winner, ok := best(firstCands)
	if !ok {
		return built
	}
	appendStop(winner.poolIndex, posFirst, winner.score)

	// ── Step 2: middle stops, i = 2 .. N-1 ──────────────
	for pos := 2; pos <= in.N-1; pos++ {
		if remainingBudget <= 0 {
			break
		}

		lastCategory := built.stops[len(built.stops)-1].Category

		// Meal-anchor exception: force a Restaurant stop at the first
		// index whose projected arrival lands inside the active meal
		// window, bypassing the no-repeat-category rule.
		if in.MealAnchored && !mealInserted && haveCursor && in.MealWindow != nil {
			var mealCands []scoredCandidate
			for _, idx := range avail {
				if used[idx] || in.Pool[idx].Category != model.CategoryRestaurant {
					continue
				}
				travel, _, ok := feasible(idx)
				if !ok {
					continue
				}
				arrival := cursor.Add(time.Duration(travel * float64(time.Minute)))
				if arrival.Before(in.MealWindow.Start) || !arrival.Before(in.MealWindow.End) {
					continue
				}
				d := matrix.dist(prevPoolIdx, idx+1)
				bearScore := bearingScoreFor(circular, prevBearing, geo.Bearing(stopLocation(in, prevPoolIdx), in.Pool[idx].Location()))
				p := in.Pool[idx]
				s := scoreCandidate(d, modeCfg.RadiusM, p.Similarity, p.Rating, bearScore, posMiddle, circular, true)
				mealCands = append(mealCands, scoredCandidate{poolIndex: idx, score: s, similarity: p.Similarity, rating: p.Rating, id: p.ID})
			}
			if w, ok := best(mealCands); ok {
				appendStop(w.poolIndex, posMiddle, w.score)
				mealInserted = true
				continue
			}
		}

		// Category interleaving: exclude same-category candidates unless
		// doing so would empty the pool (spec.md §4.6.4).
		interleaved := filterIndices(avail, used, func(idx int) bool {
			return in.Pool[idx].Category != lastCategory
		})
		if len(interleaved) == 0 {
			interleaved = filterIndices(avail, used, func(int) bool { return true })
		}
		if len(interleaved) == 0 {
			break
		}

		// Circular direction lock/filter.
		candidateSet := interleaved
		if circular {
			if built.direction == nil {
				bearings := make([]float64, 0, len(interleaved))
				for _, idx := range interleaved {
					bearings = append(bearings, geo.Bearing(stopLocation(in, prevPoolIdx), in.Pool[idx].Location()))
				}
				dir := resolveDirection(b.planner.CircularDirectionPreference, prevBearing, bearings)
				built.direction = &dir
			}
			coned := filterIndices(interleaved, nil, func(idx int) bool {
				b2 := geo.Bearing(stopLocation(in, prevPoolIdx), in.Pool[idx].Location())
				return withinCone(b2, prevBearing, tau, *built.direction)
			})
			if len(coned) > 0 {
				candidateSet = coned
			}
		}

		var cands []scoredCandidate
		for _, idx := range candidateSet {
			if _, _, ok := feasible(idx); !ok {
				continue
			}
			d := matrix.dist(prevPoolIdx, idx+1)
			bearScore := bearingScoreFor(circular, prevBearing, geo.Bearing(stopLocation(in, prevPoolIdx), in.Pool[idx].Location()))
			p := in.Pool[idx]
			s := scoreCandidate(d, modeCfg.RadiusM, p.Similarity, p.Rating, bearScore, posMiddle, circular, true)
			cands = append(cands, scoredCandidate{poolIndex: idx, score: s, similarity: p.Similarity, rating: p.Rating, id: p.ID})
		}
		winner, ok := best(cands)
		if !ok {
			break
		}
		appendStop(winner.poolIndex, posMiddle, winner.score)
	}

	// ── Step 3: closing stop ────────────────────────────
	if in.N >= 2 && remainingBudget > 0 {
		// Category interleaving also applies to the closing stop, unless no
		// other-category candidate remains.
		lastCategory := built.stops[len(built.stops)-1].Category
		otherCategoryLeft := len(filterIndices(avail, used, func(idx int) bool {
			return in.Pool[idx].Category != lastCategory
		})) > 0
		for _, rho := range []float64{0.2, 0.4, 0.6, 0.8, 1.0} {
			threshold := rho * modeCfg.RadiusM
			var cands []scoredCandidate
			for _, idx := range avail {
				if used[idx] {
					continue
				}
				if otherCategoryLeft && in.Pool[idx].Category == lastCategory {
					continue
				}
				distFromUser := matrix.dist(0, idx+1)
				if distFromUser > threshold {
					continue
				}
				if _, _, ok := feasible(idx); !ok {
					continue
				}
				d := matrix.dist(prevPoolIdx, idx+1)
				bearScore := bearingScoreFor(circular, prevBearing, geo.Bearing(stopLocation(in, prevPoolIdx), in.Pool[idx].Location()))
				p := in.Pool[idx]
				s := scoreCandidate(d, modeCfg.RadiusM, p.Similarity, p.Rating, bearScore, posLast, circular, true)
				cands = append(cands, scoredCandidate{poolIndex: idx, score: s, similarity: p.Similarity, rating: p.Rating, id: p.ID})
			}
			if w, ok := best(cands); ok {
				appendStop(w.poolIndex, posLast, w.score)
				break
			}
		}
	}

	return built
}

// bearingScoreFor picks circular_score or zigzag_score depending on routing
// mode (spec.md §4.6.2).
func bearingScoreFor(circular bool, prevBearing, newBearing float64) float64 {
	if circular {
		return geo.CircularScore(prevBearing, newBearing)
	}
	return geo.ZigzagScore(prevBearing, newBearing)
}

// stopLocation resolves the current anchor location q: the user's position
// when prevPoolIdx is 0 (matrix index for U), else the previously selected
// POI's location.
func stopLocation(in BuildInput, prevPoolIdx int) model.Location {
	if prevPoolIdx == 0 {
		return in.User
	}
	return in.Pool[prevPoolIdx-1].Location()
}

func availableIndices(n int, used map[int]bool) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if used == nil || !used[i] {
			out = append(out, i)
		}
	}
	return out
}

func filterIndices(indices []int, used map[int]bool, keep func(int) bool) []int {
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if used != nil && used[idx] {
			continue
		}
		if keep(idx) {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}
