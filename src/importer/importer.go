// Package importer orchestrates batch trade ingestion: account resolution
// once per batch, then normalize → price → persist per row with per-row
// failure isolation, then a single analytics refresh.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/accounts"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/analytics"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/models"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/normalizer"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/pnl"
)

var (
	// ErrValidation marks malformed top-level input; the batch is rejected
	// before anything is written.
	ErrValidation = errors.New("batch validation failure")
)

// RowResult is the outcome of one input row, reported in input order.
type RowResult struct {
	RowIndex      int                       `json:"row_index"`
	Success       bool                      `json:"success"`
	TradeID       string                    `json:"trade_id,omitempty"`
	Error         string                    `json:"error,omitempty"`
	AccountIDUsed string                    `json:"account_id_used"`
	Warnings      []normalizer.FieldWarning `json:"warnings,omitempty"`
}

// RowError carries the detail of a failed row for the response's
// detailed_errors section.
type RowError struct {
	Index   int            `json:"index"`
	Message string         `json:"message"`
	Raw     map[string]any `json:"raw_row"`
}

// BatchResult is what ProcessBatch hands back to the caller: counts plus the
// full per-row outcome list.
type BatchResult struct {
	BatchID   string      `json:"batch_id"`
	AccountID string      `json:"account_id"`
	Processed int         `json:"processed"`
	Errors    int         `json:"errors"`
	Results   []RowResult `json:"results"`
	RowErrors []RowError  `json:"detailed_errors,omitempty"`
}

type Service struct {
	db       *sql.DB
	resolver *accounts.Resolver
	agg      *analytics.Aggregator
	maxRows  int
}

func NewService(db *sql.DB, resolver *accounts.Resolver, agg *analytics.Aggregator, maxRows int) *Service {
	return &Service{
		db:       db,
		resolver: resolver,
		agg:      agg,
		maxRows:  maxRows,
	}
}

// ProcessBatch ingests one batch of raw rows for a user.
//
// The owning account is resolved once per batch. A supplied accountIDOverride
// is used only after verifying it belongs to the user; otherwise resolution
// runs as if no override was given. Each row is processed independently: a
// malformed row is recorded and skipped, never aborting the batch. The
// analytics refresh runs exactly once afterwards and its failure is logged,
// not surfaced.
func (s *Service) ProcessBatch(ctx context.Context, userID string, rows []map[string]any, accountIDOverride string, mode normalizer.Mode) (*BatchResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: rows must be a non-empty array", ErrValidation)
	}
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: batch of %d rows exceeds the %d row limit", ErrValidation, len(rows), s.maxRows)
	}

	batchID := uuid.NewString()
	start := time.Now()
	logger.L.Info("ProcessBatch START", "batchID", batchID, "userID", userID, "rows", len(rows), "mode", mode.String())

	accountID, platform, err := s.resolveAccount(userID, rows, accountIDOverride)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		BatchID:   batchID,
		AccountID: accountID,
		Results:   make([]RowResult, 0, len(rows)),
	}

	for i, raw := range rows {
		if ctx.Err() != nil {
			result.recordFailure(i, fmt.Sprintf("batch aborted: %v", ctx.Err()), raw, accountID, nil)
			continue
		}
		rowRes := s.processRow(userID, accountID, platform, raw, mode)
		rowRes.RowIndex = i
		if rowRes.Success {
			result.Processed++
			result.Results = append(result.Results, rowRes)
		} else {
			result.recordFailure(i, rowRes.Error, raw, accountID, rowRes.Warnings)
		}
	}

	// One refresh per batch, never per row; a dashboard-refresh failure must
	// not turn a successful import into a failed one.
	if err := s.agg.Refresh(userID); err != nil {
		logger.L.Warn("Post-batch analytics refresh failed", "batchID", batchID, "userID", userID, "error", err)
	}

	logger.L.Info("ProcessBatch END",
		"batchID", batchID, "userID", userID,
		"processed", result.Processed, "errors", result.Errors,
		"duration", time.Since(start))
	return result, nil
}

func (r *BatchResult) recordFailure(index int, message string, raw map[string]any, accountID string, warnings []normalizer.FieldWarning) {
	r.Errors++
	r.Results = append(r.Results, RowResult{
		RowIndex:      index,
		Success:       false,
		Error:         message,
		AccountIDUsed: accountID,
		Warnings:      warnings,
	})
	r.RowErrors = append(r.RowErrors, RowError{Index: index, Message: message, Raw: raw})
}

// resolveAccount picks the owning account exactly once per batch. The
// platform hint comes from the first row that declares one.
func (s *Service) resolveAccount(userID string, rows []map[string]any, accountIDOverride string) (accountID, platform string, err error) {
	platform = accounts.DefaultPlatform
	for _, raw := range rows {
		if p := normalizer.ExtractPlatform(raw); p != "" {
			platform = p
			break
		}
	}

	if accountIDOverride != "" {
		owned, err := s.resolver.BelongsToUser(accountIDOverride, userID)
		if err != nil {
			return "", "", err
		}
		if owned {
			return accountIDOverride, platform, nil
		}
		// The override does not belong to the caller: resolve instead of
		// trusting it.
		logger.L.Warn("Account override not owned by user, falling back to resolution",
			"userID", userID, "accountIDOverride", accountIDOverride)
	}

	accountID, err = s.resolver.ResolveOrCreate(userID, platform)
	if err != nil {
		return "", "", err
	}
	return accountID, platform, nil
}

func (s *Service) processRow(userID, accountID, batchPlatform string, raw map[string]any, mode normalizer.Mode) RowResult {
	res := RowResult{AccountIDUsed: accountID}

	fields, warnings, err := normalizer.Normalize(raw, mode)
	res.Warnings = warnings
	if err != nil {
		res.Error = err.Error()
		return res
	}

	net, err := pnl.ComputeNet(fields.Symbol, fields.Side, fields.EntryPrice, fields.ExitPrice, fields.Quantity, fields.Fees)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if fields.HasReportedPnL && math.Abs(fields.ReportedPnL-net) > 0.01 {
		logger.L.Debug("Computed pnl differs from platform-reported value",
			"userID", userID, "symbol", fields.Symbol,
			"computed", net, "reported", fields.ReportedPnL)
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		payload = []byte("{}")
	}

	platform := fields.Platform
	if platform == "" {
		platform = batchPlatform
	}

	trade := &models.Trade{
		ID:             uuid.NewString(),
		UserID:         userID,
		AccountID:      accountID,
		Symbol:         fields.Symbol,
		Side:           fields.Side,
		Quantity:       fields.Quantity,
		EntryPrice:     fields.EntryPrice,
		ExitPrice:      fields.ExitPrice,
		EntryTime:      fields.EntryTime,
		ExitTime:       fields.ExitTime,
		TradeDate:      fields.TradeDate,
		NetPnL:         net,
		Fees:           pnl.Fees(fields.Symbol, fields.Quantity, fields.Fees),
		SourcePlatform: platform,
		RawPayload:     string(payload),
		CreatedAt:      time.Now().UTC(),
	}

	if err := models.InsertTrade(s.db, trade); err != nil {
		res.Error = fmt.Sprintf("persistence failure: %v", err)
		return res
	}

	res.Success = true
	res.TradeID = trade.ID
	return res
}
