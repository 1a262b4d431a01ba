package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/analytics"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/models"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/utils"
)

type TradeHandler struct {
	db  *sql.DB
	agg *analytics.Aggregator
}

func NewTradeHandler(db *sql.DB, agg *analytics.Aggregator) *TradeHandler {
	return &TradeHandler{db: db, agg: agg}
}

// HandleGetTrades lists all of the caller's trades, newest first.
func (h *TradeHandler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	trades, err := models.ListTradesByUser(h.db, userID)
	if err != nil {
		logger.L.Error("Error fetching trades for user", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to fetch trades.", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(trades); err != nil {
		logger.L.Error("Error encoding trades response", "userID", userID, "error", err)
	}
}

// HandleDeleteAllTrades removes every trade the caller owns and refreshes the
// analytics snapshot so the dashboard immediately reflects the empty state.
func (h *TradeHandler) HandleDeleteAllTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	deleted, err := models.DeleteTradesByUser(h.db, userID)
	if err != nil {
		logger.L.Error("Error deleting trades for user", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to delete trades.", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Deleted all trades for user", "userID", userID, "count", deleted)

	if err := h.agg.Refresh(userID); err != nil {
		logger.L.Warn("Analytics refresh after delete failed", "userID", userID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "All trades deleted successfully.",
		"deleted": deleted,
	})
}
