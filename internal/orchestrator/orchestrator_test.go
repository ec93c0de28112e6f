package orchestrator

import (
	"testing"
	"time"

	"github.com/tourloop/planner/config"
	"github.com/tourloop/planner/internal/model"
	"github.com/tourloop/planner/internal/query"
)

func TestMembersOf_ProjectsLeanPairs(t *testing.T) {
	r := model.Route{
		Stops: []model.Stop{
			{POIID: "a", Category: model.CategoryRestaurant},
			{POIID: "b", Category: model.CategoryCulture},
		},
	}
	members := membersOf(r)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].POIID != "a" || members[0].Category != model.CategoryRestaurant {
		t.Errorf("unexpected first member: %+v", members[0])
	}
}

func TestResolveRouteIDs_ReplaceRouteOverridesAllocation(t *testing.T) {
	o := &Orchestrator{}
	entry := model.NewUserCacheEntry(model.ModeWalking)
	entry.NextRouteID = 5

	ids := o.resolveRouteIDs(entry, SearchRequest{ReplaceRoute: "2", MaxRoutes: 3})
	if len(ids) != 1 || ids[0] != "2" {
		t.Fatalf("expected [\"2\"], got %v", ids)
	}
	if entry.NextRouteID != 5 {
		t.Errorf("replace_route must not advance the route id counter, got %d", entry.NextRouteID)
	}
}

func TestResolveRouteIDs_AllocatesSequentially(t *testing.T) {
	o := &Orchestrator{}
	entry := model.NewUserCacheEntry(model.ModeWalking)

	ids := o.resolveRouteIDs(entry, SearchRequest{MaxRoutes: 3})
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}
	want := []string{"1", "2", "3"}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, id, want[i])
		}
	}
	if entry.NextRouteID != 4 {
		t.Errorf("expected counter to advance to 4, got %d", entry.NextRouteID)
	}
}

func TestMealWindow_NilWhenNotAnchored(t *testing.T) {
	now := time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC)
	got := mealWindow(&now, query.Expanded{MealAnchored: false}, config.PlannerConfig{})
	if got != nil {
		t.Errorf("expected nil meal window when not anchored, got %+v", got)
	}
}

func TestMealWindow_ResolvesLunchInstantsOnRequestDate(t *testing.T) {
	now := time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC)
	planner := config.PlannerConfig{LunchWindowStart: "11:30", LunchWindowEnd: "13:30"}
	got := mealWindow(&now, query.Expanded{MealAnchored: true, MealAnchorReason: "lunch"}, planner)
	if got == nil {
		t.Fatalf("expected a resolved meal window")
	}
	wantStart := time.Date(2026, 2, 5, 11, 30, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 2, 5, 13, 30, 0, 0, time.UTC)
	if !got.Start.Equal(wantStart) || !got.End.Equal(wantEnd) {
		t.Errorf("meal window = [%v, %v], want [%v, %v]", got.Start, got.End, wantStart, wantEnd)
	}
}
