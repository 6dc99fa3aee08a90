package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/application"
)

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	var req application.CreateTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_transaction", err)
		return
	}

	txn, err := h.service.CreateTransaction(r.Context(), principal.ExternalID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_transaction", err)
		return
	}
	writeSuccess(w, http.StatusCreated, txn)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	query := application.ListTransactionsQuery{
		Page:  parseIntDefault(r.URL.Query().Get("page"), 1),
		Limit: parseIntDefault(r.URL.Query().Get("limit"), 20),
	}
	txns, err := h.service.ListTransactions(r.Context(), principal.ExternalID, query)
	if err != nil {
		writeMappedError(r.Context(), w, "list_transactions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"transactions": txns,
	})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}
	transactionID, err := uuid.Parse(chi.URLParam(r, "transaction_id"))
	if err != nil {
		// Malformed ids read the same as absent ones.
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	txn, err := h.service.GetTransaction(r.Context(), principal.ExternalID, transactionID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_transaction", err)
		return
	}
	writeSuccess(w, http.StatusOK, txn)
}

func (h *Handler) addParticipant(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}
	transactionID, err := uuid.Parse(chi.URLParam(r, "transaction_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	var req application.AddParticipantRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_participant", err)
		return
	}

	txn, err := h.service.AddParticipant(r.Context(), principal.ExternalID, transactionID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "add_participant", err)
		return
	}
	writeSuccess(w, http.StatusOK, txn)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}
	transactionID, err := uuid.Parse(chi.URLParam(r, "transaction_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	var req application.UpdateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_status", err)
		return
	}

	txn, err := h.service.UpdateStatus(r.Context(), principal.ExternalID, transactionID, req.Status)
	if err != nil {
		writeMappedError(r.Context(), w, "update_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, txn)
}
