package bankapi

import (
	"context"
	"log"

	"agentcrm/internal/refdata"
	"agentcrm/models"

	"github.com/google/uuid"
)

// Reconciler сводит локальные статусы заявок с банковскими: опрос
// get_ticket_info и входящие вебхуки.
type Reconciler struct {
	store     Store
	transport Transport
	refs      *refdata.Registry
	notifier  Notifier
}

func NewReconciler(store Store, transport Transport, refs *refdata.Registry, notifier Notifier) *Reconciler {
	return &Reconciler{
		store:     store,
		transport: transport,
		refs:      refs,
		notifier:  notifier,
	}
}

type SyncResult struct {
	BankStatus    string `json:"bankStatus"`
	Comment       string `json:"comment"`
	Manager       string `json:"manager"`
	PaymentStatus string `json:"paymentStatus"`
	StatusID      int    `json:"statusId"`
	Changed       bool   `json:"changed"`
}

// SyncStatus опрашивает банк по заявке и записывает новый bank_status,
// если тот изменился.
func (r *Reconciler) SyncStatus(ctx context.Context, applicationID int) (*SyncResult, error) {
	var result *SyncResult

	err := r.store.WithApplicationLock(ctx, applicationID, func(app *models.Application) error {
		if app.ExternalID == "" {
			return ErrNotSubmitted
		}

		ticket, err := r.transport.TicketInfo(ctx, app)
		if err != nil {
			return err
		}

		result = &SyncResult{
			BankStatus:    ticket.Status.Name,
			Comment:       ticket.Status.Comment,
			Manager:       ticket.ManagerName,
			PaymentStatus: ticket.PaymentStatusName,
			StatusID:      ticket.Status.ID,
		}
		if ticket.Status.Name != "" && ticket.Status.Name != app.BankStatus {
			result.Changed = true
			app.BankStatus = ticket.Status.Name
			if ticket.Status.ID != 0 {
				app.StatusID = ticket.Status.ID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type WebhookInput struct {
	ExternalID string
	StatusID   int
	StatusName string
}

// WebhookResult — аудит обработки вебхука: что было и что стало.
type WebhookResult struct {
	EventID        string `json:"eventId"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	ApplicationID  int    `json:"applicationId,omitempty"`
	PrevStatus     string `json:"prevStatus,omitempty"`
	NewStatus      string `json:"newStatus,omitempty"`
	PrevStatusID   int    `json:"prevStatusId,omitempty"`
	NewStatusID    int    `json:"newStatusId,omitempty"`
	PrevBankStatus string `json:"prevBankStatus,omitempty"`
	NewBankStatus  string `json:"newBankStatus,omitempty"`
}

// ProcessWebhook применяет входящий статус банка к заявке. Неизвестный
// external_id — не ошибка: вебхук должен быть подтвержден банку в любом
// случае, поэтому возвращается структурированный результат.
func (r *Reconciler) ProcessWebhook(ctx context.Context, in WebhookInput) (*WebhookResult, error) {
	result := &WebhookResult{EventID: uuid.NewString()}

	app, err := r.store.GetApplicationByExternalID(ctx, in.ExternalID)
	if err != nil {
		log.Printf("bankapi: webhook %s: external_id %q status_id %d: application not found: %v",
			result.EventID, in.ExternalID, in.StatusID, err)
		result.Error = "application not found"
		return result, nil
	}

	var prevStatus string
	err = r.store.WithApplicationLock(ctx, app.ID, func(a *models.Application) error {
		result.ApplicationID = a.ID
		result.PrevStatus = a.Status
		result.PrevStatusID = a.StatusID
		result.PrevBankStatus = a.BankStatus
		prevStatus = a.Status

		// Входящий status_id записывается всегда
		a.StatusID = in.StatusID

		def, found := r.refs.Tables().LookupStatus(in.StatusID, a.ProductType)
		switch {
		case in.StatusName != "":
			a.BankStatus = in.StatusName
		case found:
			a.BankStatus = def.Name
		}
		if found && def.InternalStatus != "" {
			a.Status = def.InternalStatus
		}

		result.NewStatus = a.Status
		result.NewStatusID = a.StatusID
		result.NewBankStatus = a.BankStatus
		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Success = true

	if r.notifier != nil && result.NewStatus != prevStatus && notifyWorthy(result.NewStatus) {
		if err := r.notifier.StatusChanged(ctx, app, prevStatus); err != nil {
			log.Printf("bankapi: webhook %s: application %d external_id %s: notification failed: %v",
				result.EventID, app.ID, in.ExternalID, err)
		}
	}
	return result, nil
}

func notifyWorthy(status string) bool {
	switch status {
	case models.StatusApproved, models.StatusRejected, models.StatusWon, models.StatusLost:
		return true
	}
	return false
}
