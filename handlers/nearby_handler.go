package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"nomadlinkAPI/middleware"
	"nomadlinkAPI/services"
)

type NearbyHandler struct {
	proximityService *services.ProximityService
}

func NewNearbyHandler(proximityService *services.ProximityService) *NearbyHandler {
	return &NearbyHandler{
		proximityService: proximityService,
	}
}

// GetNearbyNomads handles the proximity query. lat and lng are required;
// radius_km and limit fall back to defaults. Auth is optional here, but an
// authenticated viewer is excluded from their own results.
func (h *NearbyHandler) GetNearbyNomads(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	query := r.URL.Query()

	latStr := query.Get("lat")
	lngStr := query.Get("lng")
	if latStr == "" || lngStr == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameters 'lat' and 'lng' are required")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid 'lat' value")
		return
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid 'lng' value")
		return
	}

	radiusKm := 0.0
	if v := query.Get("radius_km"); v != "" {
		radiusKm, err = strconv.ParseFloat(v, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'radius_km' value")
			return
		}
	}

	limit := 0
	if v := query.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' value")
			return
		}
	}

	clerkID, _ := middleware.GetClerkID(ctx)

	nearby, err := h.proximityService.FindNearby(ctx, clerkID, lat, lng, radiusKm, limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, nearby)
}
