package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"agentcrm/models"
)

// GetApplicationHandler возвращает заявку по id
func (h *Handler) GetApplicationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid applicationId")
		return
	}

	app, err := h.Store.GetApplication(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Application not found")
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// SendApplicationHandler отправляет заявку в банк
func (h *Handler) SendApplicationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid applicationId")
		return
	}

	result, err := h.Bank.Send(r.Context(), id)
	if err != nil {
		status, message := bankErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("handlers: application %d: send failed: %v", id, err)
		}
		writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncApplicationStatusHandler опрашивает статус заявки в банке
func (h *Handler) SyncApplicationStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid applicationId")
		return
	}

	result, err := h.Sync.SyncStatus(r.Context(), id)
	if err != nil {
		status, message := bankErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("handlers: application %d: status sync failed: %v", id, err)
		}
		writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ChangeApplicationStatusHandler — админские переходы статуса:
// запрос доработки, одобрение, отказ, восстановление, итог сделки.
func (h *Handler) ChangeApplicationStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid applicationId")
		return
	}

	newStatus := r.URL.Query().Get("status")
	message := r.URL.Query().Get("message")

	allowedTargets := map[string]bool{
		models.StatusPending:       true,
		models.StatusInReview:      true,
		models.StatusInfoRequested: true,
		models.StatusApproved:      true,
		models.StatusRejected:      true,
		models.StatusWon:           true,
		models.StatusLost:          true,
	}
	if !allowedTargets[newStatus] {
		writeError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	var updated *models.Application
	err := h.Store.WithApplicationLock(r.Context(), id, func(a *models.Application) error {
		if !models.TransitionAllowed(a.Status, newStatus) {
			return errInvalidTransition
		}
		a.Status = newStatus
		switch newStatus {
		case models.StatusInfoRequested:
			a.RevisionMessage = message
		case models.StatusRejected:
			a.RejectReason = message
		}
		copied := *a
		updated = &copied
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errInvalidTransition):
			writeError(w, http.StatusBadRequest, "Invalid status transition")
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "Application not found")
		default:
			log.Printf("handlers: application %d: status change failed: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to update status")
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

var errInvalidTransition = errors.New("invalid status transition")

// GetApplicationDocumentsHandler возвращает документы заявки в порядке
// привязки
func (h *Handler) GetApplicationDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid applicationId")
		return
	}

	docs, err := h.Store.GetApplicationDocuments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}
