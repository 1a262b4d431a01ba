package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/analytics"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/utils"
)

type AnalyticsHandler struct {
	agg *analytics.Aggregator
}

func NewAnalyticsHandler(agg *analytics.Aggregator) *AnalyticsHandler {
	return &AnalyticsHandler{agg: agg}
}

// HandleGetSummary serves the caller's aggregate metric snapshot with ETag
// revalidation, so an unchanged dashboard poll costs a 304.
func (h *AnalyticsHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	snapshot, err := h.agg.Summary(userID)
	if err != nil {
		logger.L.Error("Error fetching analytics summary", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to fetch analytics summary.", http.StatusInternalServerError)
		return
	}

	etag, err := utils.GenerateETag(snapshot)
	if err != nil {
		logger.L.Error("Error generating ETag for analytics summary", "userID", userID, "error", err)
	} else {
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		logger.L.Error("Error encoding analytics summary response", "userID", userID, "error", err)
	}
}
