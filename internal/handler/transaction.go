package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/finvault/transaction-service/internal/middleware"
	"github.com/finvault/transaction-service/internal/models"
)

// CreateTransaction handles POST /transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req models.TransactionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	tx, err := h.txs.Create(r.Context(), userID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// ListTransactions handles GET /transactions with filter and pagination
// query parameters.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	filter, page, limit, err := parseListQuery(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.txs.List(r.Context(), userID, filter, page, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /transactions/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	summary, err := h.txs.Summary(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetTransaction handles GET /transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	tx, err := h.txs.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// UpdateTransaction handles PUT/PATCH /transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var patch models.TransactionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	tx, err := h.txs.Update(r.Context(), userID, mux.Vars(r)["id"], patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.txs.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListQuery(r *http.Request) (models.TransactionFilter, int, int, error) {
	q := r.URL.Query()
	var filter models.TransactionFilter

	if t := q.Get("type"); t != "" {
		if t != models.TypeCredit && t != models.TypeDebit {
			return filter, 0, 0, models.NewValidationError("type", "must be either credit or debit")
		}
		filter.Type = t
	}
	if v := q.Get("start_date"); v != "" {
		ts, err := parseTimestamp(v)
		if err != nil {
			return filter, 0, 0, models.NewValidationError("start_date", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		filter.StartDate = &ts
	}
	if v := q.Get("end_date"); v != "" {
		ts, err := parseTimestamp(v)
		if err != nil {
			return filter, 0, 0, models.NewValidationError("end_date", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		filter.EndDate = &ts
	}
	if v := q.Get("min_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return filter, 0, 0, models.NewValidationError("min_amount", "must be a non-negative decimal")
		}
		filter.MinAmount = &d
	}
	if v := q.Get("max_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return filter, 0, 0, models.NewValidationError("max_amount", "must be a non-negative decimal")
		}
		filter.MaxAmount = &d
	}

	page := 0
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, 0, 0, models.NewValidationError("page", "must be a positive integer")
		}
		page = n
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, 0, 0, models.NewValidationError("limit", "must be a positive integer")
		}
		limit = n
	}
	return filter, page, limit, nil
}

func parseTimestamp(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", v)
}
