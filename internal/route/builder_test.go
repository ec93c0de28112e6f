package route

import (
	"context"
	"testing"

	"github.com/tourloop/planner/config"
	"github.com/tourloop/planner/internal/model"
)

func testPlanner() config.PlannerConfig {
	return config.PlannerConfig{
		Modes: map[model.Mode]config.ModeConfig{
			model.ModeWalking: {SpeedKmph: 4.5, KRing: 2, RadiusM: 2000},
		},
		UseCircularRouting:          false,
		CircularAngleToleranceDeg:   10,
		CircularDirectionPreference: "auto",
		DefaultStayMinutes:          30,
		StayMinutesByCat: map[string]float64{
			model.CategoryRestaurant: 60,
			model.CategoryCulture:    75,
		},
	}
}

// a small grid of POIs roughly 300-700m apart around a central user
// location, alternating categories so interleaving never starves.
func testPool() []model.POI {
	return []model.POI{
		{ID: "a", Name: "Cafe A", Lat: 28.700, Lon: 77.100, Category: model.CategoryCafeBakery, Rating: 0.8, Similarity: 0.6},
		{ID: "b", Name: "Museum B", Lat: 28.702, Lon: 77.101, Category: model.CategoryCulture, Rating: 0.9, Similarity: 0.7},
		{ID: "c", Name: "Cafe C", Lat: 28.704, Lon: 77.099, Category: model.CategoryCafeBakery, Rating: 0.7, Similarity: 0.5},
		{ID: "d", Name: "Park D", Lat: 28.699, Lon: 77.103, Category: model.CategoryNature, Rating: 0.85, Similarity: 0.65},
		{ID: "e", Name: "Gallery E", Lat: 28.701, Lon: 77.097, Category: model.CategoryCulture, Rating: 0.75, Similarity: 0.55},
	}
}

func TestBuild_EmptyPoolErrors(t *testing.T) {
	b := NewBuilder(testPlanner())
	_, err := b.Build(context.Background(), BuildInput{
		User: model.Location{Lat: 28.70, Lon: 77.10},
		Mode: model.ModeWalking,
		Pool: nil,
		TMaxMinutes: 120, N: 3, R: 1,
	})
	if err == nil {
		t.Fatalf("expected an error for an empty candidate pool")
	}
}

func TestBuild_ProducesRouteWithinStopBudget(t *testing.T) {
	b := NewBuilder(testPlanner())
	routes, err := b.Build(context.Background(), BuildInput{
		User:        model.Location{Lat: 28.70, Lon: 77.10},
		Mode:        model.ModeWalking,
		Pool:        testPool(),
		TMaxMinutes: 240,
		N:           3,
		R:           1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if len(routes[0].Stops) == 0 || len(routes[0].Stops) > 3 {
		t.Errorf("expected 1-3 stops, got %d", len(routes[0].Stops))
	}
}

func TestBuild_CategoryInterleaving(t *testing.T) {
	b := NewBuilder(testPlanner())
	routes, err := b.Build(context.Background(), BuildInput{
		User:        model.Location{Lat: 28.70, Lon: 77.10},
		Mode:        model.ModeWalking,
		Pool:        testPool(),
		TMaxMinutes: 240,
		N:           3,
		R:           1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stops := routes[0].Stops
	for i := 1; i < len(stops); i++ {
		if stops[i].Category == stops[i-1].Category {
			t.Errorf("consecutive stops %d and %d share category %q", i-1, i, stops[i].Category)
		}
	}
}

func TestBuild_TinyBudgetTruncatesRoute(t *testing.T) {
	b := NewBuilder(testPlanner())
	routes, err := b.Build(context.Background(), BuildInput{
		User:        model.Location{Lat: 28.70, Lon: 77.10},
		Mode:        model.ModeWalking,
		Pool:        testPool(),
		TMaxMinutes: 5, // far too small for even one stay+travel leg
		N:           3,
		R:           1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("expected no feasible route under a 5-minute budget, got %d", len(routes))
	}
}

func TestBuild_DisjointAcrossRoutes(t *testing.T) {
	b := NewBuilder(testPlanner())
	routes, err := b.Build(context.Background(), BuildInput{
		User:        model.Location{Lat: 28.70, Lon: 77.10},
		Mode:        model.ModeWalking,
		Pool:        testPool(),
		TMaxMinutes: 240,
		N:           2,
		R:           2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	first := map[string]bool{}
	for _, s := range routes[0].Stops {
		first[s.POIID] = true
	}
	overlap := 0
	for _, s := range routes[1].Stops {
		if first[s.POIID] {
			overlap++
		}
	}
	if overlap == len(routes[1].Stops) && len(routes[1].Stops) > 0 {
		t.Errorf("expected routes to prefer disjoint POIs when the pool allows it")
	}
}
