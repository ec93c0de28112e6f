package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tourloop/planner/internal/model"
	"github.com/tourloop/planner/internal/substitution"
)

// SubstitutionHandler handles replace_poi and confirm_replace (spec.md §4.9).
type SubstitutionHandler struct {
	svc *substitution.Service
}

// NewSubstitutionHandler creates a substitution handler.
func NewSubstitutionHandler(svc *substitution.Service) *SubstitutionHandler {
	return &SubstitutionHandler{svc: svc}
}

// replacePOIBody is the JSON body for POST /api/v1/substitute/{route_id}/{poi_id}.
type replacePOIBody struct {
	UserID       string  `json:"user_id"`
	UserLat      float64 `json:"user_lat"`
	UserLon      float64 `json:"user_lon"`
	Mode         string  `json:"mode"`
	TopK         int     `json:"top_k"`
	CurrentTime  string  `json:"current_time"`
}

// ReplacePOI handles POST /api/v1/substitute/{route_id}/{poi_id}
func (h *SubstitutionHandler) ReplacePOI(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	routeID, poiID := vars["route_id"], vars["poi_id"]

	var body replacePOIBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if body.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	if body.TopK <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top_k must be positive"})
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

	candidates, err := h.svc.ReplacePOI(
		r.Context(),
		body.UserID, routeID, poiID,
		model.Location{Lat: body.UserLat, Lon: body.UserLon},
		model.Mode(body.Mode),
		body.TopK,
		currentTime,
	)
	if err != nil {
		switch {
		case errors.Is(err, substitution.ErrUserNotFound), errors.Is(err, substitution.ErrRouteNotFound), errors.Is(err, substitution.ErrPOINotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": err.Error()})
		case errors.Is(err, substitution.ErrNoCandidates):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "no_candidates", "message": err.Error()})
		default:
			log.Printf("[handler] replace_poi error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates})
}

// confirmReplaceBody is the JSON body for POST /api/v1/substitute/{route_id}/{poi_id}/confirm.
type confirmReplaceBody struct {
	UserID    string `json:"user_id"`
	NewPOIID  string `json:"new_poi_id"`
}

// ConfirmReplace handles POST /api/v1/substitute/{route_id}/{poi_id}/confirm
func (h *SubstitutionHandler) ConfirmReplace(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	routeID, oldPOIID := vars["route_id"], vars["poi_id"]

	var body confirmReplaceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if body.UserID == "" || body.NewPOIID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and new_poi_id are required"})
		return
	}

	entry, err := h.svc.ConfirmReplace(r.Context(), body.UserID, routeID, oldPOIID, body.NewPOIID)
	if err != nil {
		switch {
		case errors.Is(err, substitution.ErrUserNotFound), errors.Is(err, substitution.ErrRouteNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": err.Error()})
		case errors.Is(err, substitution.ErrConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict", "message": err.Error()})
		default:
			log.Printf("[handler] confirm_replace error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "confirmed",
		"updated_route": entry.Routes[routeID],
	})
}
