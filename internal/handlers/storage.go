package handlers

import (
	"context"

	"agentcrm/internal/bankapi"
	"agentcrm/models"
)

type StorageInterface interface {
	GetApplication(ctx context.Context, id int) (*models.Application, error)
	WithApplicationLock(ctx context.Context, id int, fn func(a *models.Application) error) error
	GetApplicationDocuments(ctx context.Context, applicationID int) ([]models.Document, error)
	GetOutboxItem(ctx context.Context, id int) (*models.EmailOutboxItem, error)
	CountOutboxByStatus(ctx context.Context, status string) (int, error)
}

// BankService — отправка заявки в банк
type BankService interface {
	Send(ctx context.Context, applicationID int) (*bankapi.SubmissionResult, error)
}

// SyncService — синхронизация статусов с банком
type SyncService interface {
	SyncStatus(ctx context.Context, applicationID int) (*bankapi.SyncResult, error)
	ProcessWebhook(ctx context.Context, in bankapi.WebhookInput) (*bankapi.WebhookResult, error)
}
