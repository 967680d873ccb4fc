package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/Dias221467/finance-goals/pkg/middleware"
)

type TransactionHandler struct {
	Service         *services.TransactionService
	ActivityService *services.ActivityService
}

func NewTransactionHandler(service *services.TransactionService, activityService *services.ActivityService) *TransactionHandler {
	return &TransactionHandler{Service: service, ActivityService: activityService}
}

// POST /transactions
func (h *TransactionHandler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.Service.CreateTransaction(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to create transaction")
		return
	}

	if h.ActivityService != nil {
		_ = h.ActivityService.LogActivity(r.Context(), userID, models.ActivityTransactionAdded, tx.ID,
			fmt.Sprintf("Recorded %s of %s %s in %s", tx.Type, tx.Amount, tx.Currency, tx.Category))
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// GET /transactions
func (h *TransactionHandler) GetTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	q, err := parseTransactionQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, err, "Invalid transaction query")
		return
	}

	page, err := h.Service.ListTransactions(r.Context(), userID, q)
	if err != nil {
		writeServiceError(w, err, "Failed to list transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, page)
}

// DELETE /transactions/{id}
func (h *TransactionHandler) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	txID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteTransaction(r.Context(), userID, txID); err != nil {
		writeServiceError(w, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
