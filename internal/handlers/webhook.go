package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"agentcrm/internal/bankapi"
)

// BankWebhookHandler принимает колбэк банка об изменении статуса.
// Банк шлет form-data, но JSON тоже принимается. Неизвестный тикет —
// не ошибка: банк получает 200 и структурированный ответ.
func (h *Handler) BankWebhookHandler(w http.ResponseWriter, r *http.Request) {
	in, err := parseWebhookRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Sync.ProcessWebhook(r.Context(), in)
	if err != nil {
		log.Printf("handlers: webhook external_id %s status_id %d: %v", in.ExternalID, in.StatusID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type webhookBody struct {
	ExternalID string `json:"external_id"`
	TicketID   string `json:"ticket_id"`
	StatusID   any    `json:"status_id"`
	StatusName string `json:"status_name"`
}

func parseWebhookRequest(r *http.Request) (bankapi.WebhookInput, error) {
	var in bankapi.WebhookInput

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var body webhookBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return in, errWebhookBadBody
		}
		in.ExternalID = body.ExternalID
		if in.ExternalID == "" {
			in.ExternalID = body.TicketID
		}
		in.StatusName = body.StatusName
		switch v := body.StatusID.(type) {
		case float64:
			in.StatusID = int(v)
		case string:
			in.StatusID, _ = strconv.Atoi(v)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return in, errWebhookBadBody
		}
		in.ExternalID = r.PostForm.Get("external_id")
		if in.ExternalID == "" {
			in.ExternalID = r.PostForm.Get("ticket_id")
		}
		in.StatusName = r.PostForm.Get("status_name")
		in.StatusID, _ = strconv.Atoi(r.PostForm.Get("status_id"))
	}

	if in.ExternalID == "" {
		return in, errWebhookNoTicket
	}
	if in.StatusID == 0 {
		return in, errWebhookNoStatus
	}
	return in, nil
}

var (
	errWebhookBadBody  = webhookError("invalid webhook body")
	errWebhookNoTicket = webhookError("missing external_id")
	errWebhookNoStatus = webhookError("missing or invalid status_id")
)

type webhookError string

func (e webhookError) Error() string { return string(e) }
