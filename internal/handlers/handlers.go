package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"agentcrm/internal/bankapi"

	"github.com/go-chi/chi/v5"
)

// Handler связывает HTTP-слой с банковским ядром и хранилищем
type Handler struct {
	Store StorageInterface
	Bank  BankService
	Sync  SyncService
}

func NewHandler(store StorageInterface, bank BankService, sync SyncService) *Handler {
	return &Handler{Store: store, Bank: bank, Sync: sync}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func applicationIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "applicationId"))
	return id, err == nil && id > 0
}

// bankErrorStatus сопоставляет ошибки ядра HTTP-кодам. Детали
// инфраструктурных сбоев наружу не уходят, только в лог.
func bankErrorStatus(err error) (int, string) {
	var validationErr *bankapi.ValidationError
	var rejectedErr *bankapi.BankRejectedError
	var transportErr *bankapi.TransportError
	var malformedErr *bankapi.MalformedResponseError

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "Application not found"
	case errors.Is(err, bankapi.ErrAlreadySubmitted):
		return http.StatusBadRequest, "Application already submitted"
	case errors.Is(err, bankapi.ErrMissingCompany):
		return http.StatusBadRequest, "Application has no company"
	case errors.Is(err, bankapi.ErrNotSubmitted):
		return http.StatusBadRequest, "Application has not been submitted"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &rejectedErr):
		return http.StatusUnprocessableEntity, rejectedErr.Message
	case errors.As(err, &transportErr), errors.As(err, &malformedErr),
		errors.Is(err, bankapi.ErrMissingTicketID):
		return http.StatusBadGateway, "Could not reach the bank"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
