package query

import (
	"testing"
	"time"

	"github.com/tourloop/planner/internal/model"
)

var defaultMeal = Window{
	LunchStart: "11:30", LunchEnd: "13:30",
	DinnerStart: "18:00", DinnerEnd: "20:00",
}

func TestExpand_SplitAndCanonicalize(t *testing.T) {
	got := Expand(" nature & view , bar ", false, nil, 0, defaultMeal)
	want := []string{model.CategoryNature, model.CategoryBar}
	if len(got.Categories) != len(want) {
		t.Fatalf("got %v, want %v", got.Categories, want)
	}
	for i := range want {
		if got.Categories[i] != want[i] {
			t.Errorf("category[%d] = %q, want %q", i, got.Categories[i], want[i])
		}
	}
}

func TestExpand_FoodAlias(t *testing.T) {
	got := Expand(model.CategoryFoodAlias, false, nil, 0, defaultMeal)
	want := map[string]bool{model.CategoryCafeBakery: true, model.CategoryRestaurant: true}
	if len(got.Categories) != 2 {
		t.Fatalf("got %v, want 2 categories", got.Categories)
	}
	for _, c := range got.Categories {
		if !want[c] {
			t.Errorf("unexpected category %q", c)
		}
	}
}

func TestExpand_FoodAliasWithCustomerLikeAddsHeritage(t *testing.T) {
	got := Expand(model.CategoryFoodAlias, true, nil, 0, defaultMeal)
	if !contains(got.Categories, model.CategoryCulture) {
		t.Errorf("expected Culture & heritage to be appended, got %v", got.Categories)
	}
}

func TestExpand_CustomerLikeNotAppliedOutsideExactFoodSet(t *testing.T) {
	got := Expand(model.CategoryBar, true, nil, 0, defaultMeal)
	if contains(got.Categories, model.CategoryCulture) {
		t.Errorf("heritage should only be appended for the exact food set, got %v", got.Categories)
	}
}

func TestExpand_MealTimeInjectsRestaurantLunch(t *testing.T) {
	now := time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC)
	got := Expand(model.CategoryNature, false, &now, 2*time.Hour, defaultMeal)
	if !got.MealAnchored {
		t.Errorf("expected meal-anchored restaurant injection")
	}
	if !contains(got.Categories, model.CategoryRestaurant) {
		t.Errorf("expected Restaurant in categories, got %v", got.Categories)
	}
	if got.MealAnchorReason != "lunch" {
		t.Errorf("MealAnchorReason = %q, want lunch", got.MealAnchorReason)
	}
}

func TestExpand_MealTimeSkippedWhenRestaurantAlreadyPresent(t *testing.T) {
	now := time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC)
	got := Expand(model.CategoryRestaurant, false, &now, 2*time.Hour, defaultMeal)
	if got.MealAnchored {
		t.Errorf("restaurant already present; should not be flagged meal-anchored")
	}
}

func TestExpand_NoMealWindowOverlapNoInjection(t *testing.T) {
	now := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	got := Expand(model.CategoryNature, false, &now, 30*time.Minute, defaultMeal)
	if got.MealAnchored {
		t.Errorf("9am + 30min should not overlap lunch or dinner")
	}
	if contains(got.Categories, model.CategoryRestaurant) {
		t.Errorf("unexpected restaurant injection: %v", got.Categories)
	}
}

func TestExpand_Dedupe(t *testing.T) {
	got := Expand("Bar, Bar, bar", false, nil, 0, defaultMeal)
	if len(got.Categories) != 1 {
		t.Errorf("expected dedupe to collapse to 1 category, got %v", got.Categories)
	}
}
