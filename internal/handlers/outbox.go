package handlers

import (
	"log"
	"net/http"
	"strconv"

	"agentcrm/models"

	"github.com/go-chi/chi/v5"
)

// OutboxStatsHandler возвращает размеры очереди исходящей почты по
// статусам. Растущий pending или ненулевой failed — повод смотреть логи
// воркера.
func (h *Handler) OutboxStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]int)
	for _, status := range []string{models.OutboxPending, models.OutboxSent, models.OutboxFailed} {
		n, err := h.Store.CountOutboxByStatus(r.Context(), status)
		if err != nil {
			log.Printf("handlers: outbox stats for status %s: %v", status, err)
			writeError(w, http.StatusInternalServerError, "Failed to get outbox stats")
			return
		}
		stats[status] = n
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetOutboxItemHandler возвращает строку очереди по id
func (h *Handler) GetOutboxItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "outboxId"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid outboxId")
		return
	}

	item, err := h.Store.GetOutboxItem(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Outbox item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}
