package bankapi

import (
	"context"
	"fmt"
	"log"
	"time"

	"agentcrm/models"
)

// Store — порт персистентности, который нужен банковскому ядру.
type Store interface {
	GetApplication(ctx context.Context, id int) (*models.Application, error)
	GetApplicationByExternalID(ctx context.Context, externalID string) (*models.Application, error)
	GetCompany(ctx context.Context, id int) (*models.Company, error)
	GetApplicationDocuments(ctx context.Context, applicationID int) ([]models.Document, error)
	WithApplicationLock(ctx context.Context, id int, fn func(a *models.Application) error) error
}

// Notifier — уведомления о доменных событиях. Ошибки уведомлений не
// валят основную операцию.
type Notifier interface {
	ApplicationSent(ctx context.Context, app *models.Application, company *models.Company) error
	StatusChanged(ctx context.Context, app *models.Application, prevStatus string) error
}

// FileResolver разрешает ключ файла в скачиваемую ссылку.
type FileResolver interface {
	URL(ctx context.Context, key string) (string, error)
}

type SubmissionResult struct {
	TicketID   string `json:"ticketId"`
	BankStatus string `json:"bankStatus"`
	Message    string `json:"message"`
}

// Client отправляет заявки в банк и сводит локальное состояние
// с ответом.
type Client struct {
	store     Store
	transport Transport
	notifier  Notifier
	files     FileResolver
	cfg       BuilderConfig
}

func NewClient(store Store, transport Transport, notifier Notifier, files FileResolver, cfg BuilderConfig) *Client {
	return &Client{
		store:     store,
		transport: transport,
		notifier:  notifier,
		files:     files,
		cfg:       cfg,
	}
}

// Send отправляет заявку в банк. Вся работа идет под блокировкой строки
// заявки: два конкурентных вызова дают ровно один external_id.
func (c *Client) Send(ctx context.Context, applicationID int) (*SubmissionResult, error) {
	var (
		result   *SubmissionResult
		sentApp  *models.Application
		sentComp *models.Company
	)

	err := c.store.WithApplicationLock(ctx, applicationID, func(app *models.Application) error {
		// Повторная отправка разрешена только на доработке
		if app.ExternalID != "" && app.Status != models.StatusInfoRequested {
			return ErrAlreadySubmitted
		}
		if app.CompanyID == 0 {
			return ErrMissingCompany
		}
		company, err := c.store.GetCompany(ctx, app.CompanyID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMissingCompany, err)
		}
		docs, err := c.store.GetApplicationDocuments(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}

		payload, err := BuildPayload(app, company, docs, c.fileURL(ctx), c.cfg)
		if err != nil {
			return err
		}
		if problems := ValidatePayload(payload, c.cfg.Phase1); len(problems) > 0 {
			return &ValidationError{Problems: problems}
		}

		ticket, err := c.transport.AddTicket(ctx, app, payload)
		if err != nil {
			return err
		}

		if app.ExternalID == "" {
			app.ExternalID = ticket.ID
		}
		if ticket.Status.Name != "" {
			app.BankStatus = ticket.Status.Name
		} else {
			app.BankStatus = "Отправлено"
		}
		if ticket.Status.ID != 0 {
			app.StatusID = ticket.Status.ID
		}
		if app.Status == models.StatusDraft || app.Status == models.StatusPending ||
			app.Status == models.StatusInfoRequested {
			app.Status = models.StatusInReview
		}
		if app.SubmittedAt == nil {
			now := time.Now()
			app.SubmittedAt = &now
		}
		if app.FullClientData == nil {
			mchdURL, _ := c.resolveURL(ctx, company.MchdFile)
			app.FullClientData = Snapshot(company, mchdURL)
		}

		result = &SubmissionResult{
			TicketID:   app.ExternalID,
			BankStatus: app.BankStatus,
			Message:    "Заявка отправлена в банк",
		}
		appCopy := *app
		sentApp, sentComp = &appCopy, company
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Уведомление — best effort: его сбой не отменяет отправку
	if c.notifier != nil {
		if err := c.notifier.ApplicationSent(ctx, sentApp, sentComp); err != nil {
			log.Printf("bankapi: application %d external_id %s: notification failed: %v",
				sentApp.ID, sentApp.ExternalID, err)
		}
	}
	return result, nil
}

func (c *Client) fileURL(ctx context.Context) FileURLFunc {
	return func(doc models.Document) string {
		u, err := c.resolveURL(ctx, doc.FileKey)
		if err != nil {
			log.Printf("bankapi: document %d: resolve file url: %v", doc.ID, err)
			return ""
		}
		return u
	}
}

func (c *Client) resolveURL(ctx context.Context, key string) (string, error) {
	if c.files == nil || key == "" {
		return "", nil
	}
	return c.files.URL(ctx, key)
}
