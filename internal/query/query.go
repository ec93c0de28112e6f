// Package query implements the query expander (C5): turns a raw,
// comma-separated category string into an ordered, deduplicated category
// list, applying alias expansion, a customer-likes heritage nudge, and
// meal-time restaurant injection.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/tourloop/planner/internal/model"
)

// Expanded is the result of expanding a raw query.
type Expanded struct {
	Categories       []string
	MealAnchored     bool
	MealAnchorReason string
}

// Window describes the [lunch, dinner] meal windows in "HH:MM" form.
type Window struct {
	LunchStart, LunchEnd   string
	DinnerStart, DinnerEnd string
}

// Expand applies the five ordered rules from spec.md §4.5:
//  1. split by comma, trim, canonicalize case
//  2. expand the Food & Local Flavours alias
//  3. append Culture & heritage when the set is exactly the food alias's
//     expansion and customerLike is true
//  4. inject Restaurant, meal-anchored, when now+budget overlaps a meal
//     window and Restaurant isn't already present
//  5. dedupe, preserving first-seen order
func Expand(
	raw string,
	customerLike bool,
	now *time.Time,
	budget time.Duration,
	meal Window,
) Expanded {
	tokens := splitCanonicalize(raw)

	var expanded []string
	for _, tok := range tokens {
		if tok == model.CategoryFoodAlias {
			expanded = append(expanded, model.CategoryCafeBakery, model.CategoryRestaurant)
		} else {
			expanded = append(expanded, tok)
		}
	}

	if isExactFoodSet(expanded) && customerLike {
		expanded = append(expanded, model.CategoryCulture)
	}

	result := Expanded{}
	if now != nil && !contains(expanded, model.CategoryRestaurant) {
		windowEnd := now.Add(budget)
		if overlapsMealWindow(*now, windowEnd, meal.LunchStart, meal.LunchEnd) {
			expanded = append(expanded, model.CategoryRestaurant)
			result.MealAnchored = true
			result.MealAnchorReason = "lunch"
		} else if overlapsMealWindow(*now, windowEnd, meal.DinnerStart, meal.DinnerEnd) {
			expanded = append(expanded, model.CategoryRestaurant)
			result.MealAnchored = true
			result.MealAnchorReason = "dinner"
		}
	}

	result.Categories = dedupe(expanded)
	return result
}

func splitCanonicalize(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, canonicalizeCase(p))
	}
	return out
}

// canonicalCategories lists every recognized category string, used to
// canonicalize case-insensitive user input back to its canonical spelling.
var canonicalCategories = []string{
	model.CategoryRestaurant,
	model.CategoryCafeBakery,
	model.CategoryCulture,
	model.CategoryNature,
	model.CategoryEntertain,
	model.CategoryShopping,
	model.CategoryBar,
	model.CategoryFoodAlias,
}

func canonicalizeCase(tok string) string {
	for _, c := range canonicalCategories {
		if strings.EqualFold(tok, c) {
			return c
		}
	}
	return tok
}

func isExactFoodSet(categories []string) bool {
	deduped := dedupe(categories)
	if len(deduped) != 2 {
		return false
	}
	has := map[string]bool{}
	for _, c := range deduped {
		has[c] = true
	}
	return has[model.CategoryCafeBakery] && has[model.CategoryRestaurant]
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// overlapsMealWindow reports whether [start, end] overlaps the wall-clock
// window [winStart, winEnd] ("HH:MM") on start's calendar date.
func overlapsMealWindow(start, end time.Time, winStart, winEnd string) bool {
	ws, ok1 := parseHHMM(winStart)
	we, ok2 := parseHHMM(winEnd)
	if !ok1 || !ok2 {
		return false
	}
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	winStartT := dayStart.Add(time.Duration(ws) * time.Minute)
	winEndT := dayStart.Add(time.Duration(we) * time.Minute)
	return winStartT.Before(end) && winEndT.After(start)
}

func parseHHMM(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
