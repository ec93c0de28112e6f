package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tourloop/planner/internal/model"
	"github.com/tourloop/planner/internal/orchestrator"
)

// PlanningHandler handles search_routes, replace_full_route, and
// visited_pois (spec.md §6).
type PlanningHandler struct {
	orch *orchestrator.Orchestrator
}

// NewPlanningHandler creates a planning handler wired to the orchestrator.
func NewPlanningHandler(orch *orchestrator.Orchestrator) *PlanningHandler {
	return &PlanningHandler{orch: orch}
}

// searchRoutesBody is the JSON body for POST /api/v1/search.
type searchRoutesBody struct {
	UserID         string  `json:"user_id"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Mode           string  `json:"mode"`
	Query          string  `json:"query"`
	CurrentTime    string  `json:"current_time"`
	MaxTimeMinutes float64 `json:"max_time_minutes"`
	TargetPlaces   int     `json:"target_places"`
	MaxRoutes      int     `json:"max_routes"`
	TopKSemantic   int     `json:"top_k_semantic"`
	CustomerLike   bool    `json:"customer_like"`
	DeleteCache    bool    `json:"delete_cache"`
	ReplaceRoute   string  `json:"replace_route"`
}

// SearchRoutes handles POST /api/v1/search
//
// Composes query expansion, spatial/semantic candidate sourcing, route
// construction, and arrival validation, persisting the result into the
// user's route cache.
func (h *PlanningHandler) SearchRoutes(w http.ResponseWriter, r *http.Request) {
	var body searchRoutesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	if body.Lat < -90 || body.Lat > 90 || body.Lon < -180 || body.Lon > 180 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat/lon out of range"})
		return
	}
	if body.Mode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode is required"})
		return
	}
	if body.MaxTimeMinutes <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max_time_minutes must be positive"})
		return
	}

	var currentTime *time.Time
	if body.CurrentTime != "" {
		t, err := time.Parse(time.RFC3339, body.CurrentTime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current_time must be RFC3339"})
			return
		}
		currentTime = &t
	}

	resp, err := h.orch.SearchRoutes(r.Context(), orchestrator.SearchRequest{
		UserID:         body.UserID,
		Location:       model.Location{Lat: body.Lat, Lon: body.Lon},
		Mode:           model.Mode(body.Mode),
		Query:          body.Query,
		CurrentTime:    currentTime,
		MaxTimeMinutes: body.MaxTimeMinutes,
		TargetPlaces:   body.TargetPlaces,
		MaxRoutes:      body.MaxRoutes,
		TopKSemantic:   body.TopKSemantic,
		CustomerLike:   body.CustomerLike,
		DeleteCache:    body.DeleteCache,
		ReplaceRoute:   body.ReplaceRoute,
	})
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInvalidMode):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mode"})
		default:
			log.Printf("[handler] search_routes error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"routes":            resp.Routes,
		"timing_breakdown":  resp.TimingBreakdownMS,
		"warnings":          resp.Warnings,
	})
}

// replaceFullRouteBody is the JSON body for POST /api/v1/routes/{route_id}/rebuild.
type replaceFullRouteBody struct {
	UserID         string  `json:"user_id"`
	NewQuery       string  `json:"new_query"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Mode           string  `json:"mode"`
	MaxTimeMinutes float64 `json:"max_time_minutes"`
	TargetPlaces   int     `json:"target_places"`
	CurrentTime    string  `json:"current_time"`
}

// RebuildRoute handles POST /api/v1/routes/{route_id}/rebuild
// (replace_full_route, spec.md §4.9).
func (h *PlanningHandler) RebuildRoute(w http.ResponseWriter, r *http.Request) {
	routeID := mux.Vars(r)["route_id"]
	if routeID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "route_id is required"})
		return
	}

	var body replaceFullRouteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	var currentTime *time.Time
	if body.CurrentTime != "" {
		t, err := time.Parse(time.RFC3339, body.CurrentTime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current_time must be RFC3339"})
			return
		}
		currentTime = &t
	}

	route, err := h.orch.ReplaceFullRoute(r.Context(), orchestrator.ReplaceFullRouteRequest{
		UserID:         body.UserID,
		RouteID:        routeID,
		NewQuery:       body.NewQuery,
		Location:       model.Location{Lat: body.Lat, Lon: body.Lon},
		Mode:           model.Mode(body.Mode),
		MaxTimeMinutes: body.MaxTimeMinutes,
		TargetPlaces:   body.TargetPlaces,
		CurrentTime:    currentTime,
	})
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInvalidMode):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mode"})
		default:
			log.Printf("[handler] replace_full_route error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"route": route})
}

// VisitedPOIs handles GET /api/v1/users/{user_id}/visited
func (h *PlanningHandler) VisitedPOIs(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	ids, err := h.orch.VisitedPOIs(r.Context(), userID)
	if err != nil {
		log.Printf("[handler] visited_pois error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"poi_ids": ids})
}
