package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/accounts"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/config"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/importer"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/normalizer"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/utils"
)

type ImportHandler struct {
	importService *importer.Service
}

func NewImportHandler(service *importer.Service) *ImportHandler {
	return &ImportHandler{importService: service}
}

type importRequest struct {
	Rows      []map[string]any `json:"rows"`
	AccountID string           `json:"account_id,omitempty"`
	Mode      string           `json:"mode,omitempty"` // "strict" | "lenient", default from config
}

type importResponse struct {
	Success        bool                 `json:"success"`
	Processed      int                  `json:"processed"`
	Errors         int                  `json:"errors"`
	AccountID      string               `json:"account_id"`
	BatchID        string               `json:"batch_id"`
	Results        []importer.RowResult `json:"results"`
	DetailedErrors []importer.RowError  `json:"detailed_errors,omitempty"`
}

// HandleImportTrades ingests a batch of raw trade rows for the caller.
func (h *ImportHandler) HandleImportTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxImportBodyBytes)
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Failed to decode import request", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body (max %d bytes): %v", config.Cfg.MaxImportBodyBytes, err), http.StatusBadRequest)
		return
	}

	mode := normalizer.ParseMode(config.Cfg.ImportMode)
	if req.Mode != "" {
		mode = normalizer.ParseMode(req.Mode)
	}

	logger.L.Info("Processing import request", "userID", userID, "rows", len(req.Rows), "mode", mode.String())
	result, err := h.importService.ProcessBatch(r.Context(), userID, req.Rows, req.AccountID, mode)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrValidation):
			logger.L.Warn("Import rejected by batch validation", "userID", userID, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, accounts.ErrResolution):
			logger.L.Error("Import aborted: account resolution failed", "userID", userID, "error", err)
			utils.SendJSONError(w, "Could not resolve an account for the import.", http.StatusInternalServerError)
		default:
			logger.L.Error("Internal error processing import", "userID", userID, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the import.", http.StatusInternalServerError)
		}
		return
	}

	resp := importResponse{
		Success:        result.Errors == 0,
		Processed:      result.Processed,
		Errors:         result.Errors,
		AccountID:      result.AccountID,
		BatchID:        result.BatchID,
		Results:        result.Results,
		DetailedErrors: result.RowErrors,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.L.Error("Error encoding JSON response for import result", "userID", userID, "error", err)
	}
}
