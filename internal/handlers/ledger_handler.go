package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/dynastyacademy/ledger/internal/middleware"
	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
	"github.com/dynastyacademy/ledger/internal/services"
)

const maxBodyBytes = 1_048_576

// LedgerHandler serves the purchase webhook and the instructor dashboard.
type LedgerHandler struct {
	registry  *services.AccountRegistry
	balances  *services.BalanceService
	fees      *services.FeeCalculator
	engine    *services.TransferEngine
	purchases *services.PurchaseService
	validator *services.ValidationHelper
	log       logrus.FieldLogger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(
	registry *services.AccountRegistry,
	balances *services.BalanceService,
	fees *services.FeeCalculator,
	engine *services.TransferEngine,
	purchases *services.PurchaseService,
	log logrus.FieldLogger,
) *LedgerHandler {
	return &LedgerHandler{
		registry:  registry,
		balances:  balances,
		fees:      fees,
		engine:    engine,
		purchases: purchases,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// BalanceResponse is an account with its derived balance in minor units.
type BalanceResponse struct {
	AccountID string             `json:"accountId"`
	Kind      models.AccountKind `json:"kind"`
	Currency  string             `json:"currency"`
	Balance   int64              `json:"balance"`
}

// ReverseRequest carries the key that makes a reversal retry-safe.
type ReverseRequest struct {
	IdempotencyKey string `json:"idempotencyKey" validate:"required,max=255"`
}

// RecordPurchase books a verified payment
// @Summary Record purchase
// @Description Split a collected payment between the platform and the instructor
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body models.PurchaseEvent true "Verified purchase"
// @Success 201 {object} models.PurchaseReceipt
// @Success 200 {object} models.PurchaseReceipt "Already recorded"
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Idempotency key used by another transfer"
// @Failure 422 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /webhooks/purchases [post]
func (h *LedgerHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var event models.PurchaseEvent
	if !decodeJSON(w, r, &event) {
		return
	}

	receipt, err := h.purchases.RecordPurchase(r.Context(), event)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	status := http.StatusCreated
	if receipt.Transfer.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, receipt)
}

// GetBalance returns an account balance
// @Summary Account balance
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} BalanceResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/balance [get]
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	account, err := h.registry.GetAccount(r.Context(), accountID)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	balance, err := h.balances.GetBalance(r.Context(), account.ID)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: account.ID,
		Kind:      account.Kind,
		Currency:  account.Currency,
		Balance:   balance,
	})
}

// GetEntries lists account entries, newest first
// @Summary Account history
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param limit query int false "Max entries (default 50, max 500)"
// @Success 200 {array} models.Entry
// @Router /accounts/{accountId}/entries [get]
func (h *LedgerHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if _, err := h.registry.GetAccount(r.Context(), accountID); err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			services.SendErrorResponse(w, "limit must be an integer", http.StatusBadRequest, nil)
			return
		}
		limit = n
	}

	entries, err := h.balances.GetAccountHistory(r.Context(), accountID, limit)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// FeeQuote prices a sale for an instructor
// @Summary Fee quote
// @Tags Fees
// @Produce json
// @Security BearerAuth
// @Param instructorId path string true "Instructor ID"
// @Param gross query int true "Gross amount in minor units"
// @Success 200 {object} models.FeeCalculation
// @Router /instructors/{instructorId}/fee-quote [get]
func (h *LedgerHandler) FeeQuote(w http.ResponseWriter, r *http.Request) {
	gross, ok := queryInt64(w, r, "gross")
	if !ok {
		return
	}

	fc, err := h.fees.CalculateFee(r.Context(), chi.URLParam(r, "instructorId"), gross)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// EarningsPotential shows the net at every tier
// @Summary Earnings by tier
// @Tags Fees
// @Produce json
// @Security BearerAuth
// @Param gross query int true "Gross amount in minor units"
// @Success 200 {array} models.EarningsRow
// @Router /fees/potential [get]
func (h *LedgerHandler) EarningsPotential(w http.ResponseWriter, r *http.Request) {
	gross, ok := queryInt64(w, r, "gross")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, services.CalculateEarningsPotential(gross))
}

// EarningsBoost compares a score's net with the Unverified net
// @Summary Earnings boost
// @Tags Fees
// @Produce json
// @Security BearerAuth
// @Param score query int true "Trust score"
// @Param gross query int true "Gross amount in minor units"
// @Success 200 {object} models.EarningsBoost
// @Router /fees/boost [get]
func (h *LedgerHandler) EarningsBoost(w http.ResponseWriter, r *http.Request) {
	score, ok := queryInt64(w, r, "score")
	if !ok {
		return
	}
	gross, ok := queryInt64(w, r, "gross")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, services.CalculateEarningsBoost(int(score), gross))
}

// ReverseTransfer posts a correcting transfer
// @Summary Reverse transfer
// @Tags Transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param refId path string true "Ref ID to reverse"
// @Param request body ReverseRequest true "Reversal"
// @Success 201 {object} models.TransferResult
// @Success 200 {object} models.TransferResult "Already reversed with this key"
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /transfers/{refId}/reverse [post]
func (h *LedgerHandler) ReverseTransfer(w http.ResponseWriter, r *http.Request) {
	var req ReverseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	refID := chi.URLParam(r, "refId")
	result, err := h.engine.ReverseTransfer(r.Context(), refID, req.IdempotencyKey)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"ref_id":       refID,
		"reversal_ref": result.RefID,
		"user_id":      middleware.UserIDFrom(r.Context()),
		"request_id":   middleware.RequestIDFrom(r.Context()),
	}).Info("reversal requested")

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// writeLedgerError maps ledger errors to status codes. Anything unexpected
// is a 500 so payment providers retry.
func (h *LedgerHandler) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var unbalanced *services.UnbalancedTransferError

	switch {
	case services.ValidationDetails(err) != nil:
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
	case errors.As(err, &unbalanced), errors.Is(err, services.ErrCurrencyMismatch):
		services.SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
	case errors.Is(err, services.ErrInvalidAccount), errors.Is(err, services.ErrInvalidAmount):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, repository.ErrNotFound):
		services.SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrInvalidReversal), errors.Is(err, services.ErrIdempotencyKeyConflict):
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFrom(r.Context()),
		}).Error("ledger request failed")
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func queryInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		services.SendErrorResponse(w, name+" is required", http.StatusBadRequest, nil)
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		services.SendErrorResponse(w, name+" must be an integer", http.StatusBadRequest, nil)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
