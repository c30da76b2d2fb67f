package bankapi_test

import (
	"context"
	"testing"

	"agentcrm/internal/bankapi"
	"agentcrm/internal/refdata"
	"agentcrm/models"

	"github.com/stretchr/testify/require"
)

type refStore struct {
	statuses []models.ApplicationStatusDefinition
	docTypes []models.DocumentTypeDefinition
}

func (s *refStore) ListStatusDefinitions(ctx context.Context) ([]models.ApplicationStatusDefinition, error) {
	return s.statuses, nil
}

func (s *refStore) ListDocumentTypeDefinitions(ctx context.Context) ([]models.DocumentTypeDefinition, error) {
	return s.docTypes, nil
}

func testRegistry(t *testing.T) *refdata.Registry {
	t.Helper()
	refs := refdata.NewRegistry(&refStore{
		statuses: []models.ApplicationStatusDefinition{
			{StatusID: 210, ProductType: models.ProductBankGuarantee, Name: "Проверка документов",
				InternalStatus: models.StatusInReview, IsActive: true},
			{StatusID: 520, ProductType: models.ProductBankGuarantee, Name: "Не актуальна",
				InternalStatus: models.StatusRejected, IsTerminal: true, IsActive: true},
			{StatusID: 710, ProductType: models.ProductBankGuarantee, Name: "Одобрено, ожидается согласование БГ",
				InternalStatus: models.StatusApproved, IsActive: true},
			{StatusID: 910, ProductType: models.ProductBankGuarantee, Name: "Гарантия выпущена",
				InternalStatus: models.StatusWon, IsActive: true},
		},
	})
	require.NoError(t, refs.Reload(context.Background()))
	return refs
}

func submittedApplication() *models.Application {
	app := testApplication()
	app.ExternalID = "1234567"
	app.Status = models.StatusInReview
	app.StatusID = 210
	app.BankStatus = "Проверка документов"
	return app
}

func TestProcessWebhookApproved(t *testing.T) {
	store := newMockStore()
	store.apps[42] = submittedApplication()
	notifier := &MockNotifier{}

	rec := bankapi.NewReconciler(store, &bankapi.SimulatedTransport{}, testRegistry(t), notifier)

	result, err := rec.ProcessWebhook(context.Background(), bankapi.WebhookInput{
		ExternalID: "1234567",
		StatusID:   710,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.EventID)
	require.Equal(t, 42, result.ApplicationID)
	require.Equal(t, models.StatusInReview, result.PrevStatus)
	require.Equal(t, models.StatusApproved, result.NewStatus)

	app := store.apps[42]
	require.Equal(t, models.StatusApproved, app.Status)
	require.Equal(t, 710, app.StatusID)
	require.Equal(t, "Одобрено, ожидается согласование БГ", app.BankStatus)
	require.Equal(t, 1, notifier.statusChanged)
}

func TestProcessWebhookReplayIdempotent(t *testing.T) {
	store := newMockStore()
	store.apps[42] = submittedApplication()
	notifier := &MockNotifier{}

	rec := bankapi.NewReconciler(store, &bankapi.SimulatedTransport{}, testRegistry(t), notifier)

	in := bankapi.WebhookInput{ExternalID: "1234567", StatusID: 710}
	first, err := rec.ProcessWebhook(context.Background(), in)
	require.NoError(t, err)
	second, err := rec.ProcessWebhook(context.Background(), in)
	require.NoError(t, err)

	require.True(t, first.Success)
	require.True(t, second.Success)
	require.Equal(t, models.StatusApproved, store.apps[42].Status)
	// Повтор не считается переходом — уведомление одно
	require.Equal(t, 1, notifier.statusChanged)
}

func TestProcessWebhookUnknownTicket(t *testing.T) {
	rec := bankapi.NewReconciler(newMockStore(), &bankapi.SimulatedTransport{}, testRegistry(t), nil)

	result, err := rec.ProcessWebhook(context.Background(), bankapi.WebhookInput{
		ExternalID: "нет-такого",
		StatusID:   710,
	})
	// Неизвестный тикет — не ошибка: банку нужен ответ 200
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotEmpty(t, result.EventID)
	require.Equal(t, "application not found", result.Error)
}

func TestProcessWebhookUnknownStatusID(t *testing.T) {
	store := newMockStore()
	store.apps[42] = submittedApplication()

	rec := bankapi.NewReconciler(store, &bankapi.SimulatedTransport{}, testRegistry(t), nil)

	result, err := rec.ProcessWebhook(context.Background(), bankapi.WebhookInput{
		ExternalID: "1234567",
		StatusID:   9999,
		StatusName: "Новый неизвестный статус",
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	// status_id и имя записаны, внутренний статус не тронут
	app := store.apps[42]
	require.Equal(t, 9999, app.StatusID)
	require.Equal(t, "Новый неизвестный статус", app.BankStatus)
	require.Equal(t, models.StatusInReview, app.Status)
}

func TestProcessWebhookCrossProductFallback(t *testing.T) {
	store := newMockStore()
	app := submittedApplication()
	app.ProductType = models.ProductTenderLoan // в справочнике только bank_guarantee
	store.apps[42] = app

	rec := bankapi.NewReconciler(store, &bankapi.SimulatedTransport{}, testRegistry(t), nil)

	result, err := rec.ProcessWebhook(context.Background(), bankapi.WebhookInput{
		ExternalID: "1234567",
		StatusID:   520,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, models.StatusRejected, store.apps[42].Status)
}

func TestSyncStatusChanged(t *testing.T) {
	store := newMockStore()
	app := submittedApplication()
	store.apps[42] = app

	ticket := &bankapi.Ticket{
		ID:          "1234567",
		Status:      bankapi.TicketStatus{ID: 310, Name: "Рассмотрение банком"},
		ManagerName: "Петрова Анна",
	}
	rec := bankapi.NewReconciler(store, &staticTransport{ticket: ticket}, testRegistry(t), nil)

	result, err := rec.SyncStatus(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, "Рассмотрение банком", result.BankStatus)
	require.Equal(t, "Петрова Анна", result.Manager)
	require.Equal(t, "Рассмотрение банком", store.apps[42].BankStatus)
	require.Equal(t, 310, store.apps[42].StatusID)
}

func TestSyncStatusUnchanged(t *testing.T) {
	store := newMockStore()
	store.apps[42] = submittedApplication()

	ticket := &bankapi.Ticket{
		ID:     "1234567",
		Status: bankapi.TicketStatus{ID: 210, Name: "Проверка документов"},
	}
	rec := bankapi.NewReconciler(store, &staticTransport{ticket: ticket}, testRegistry(t), nil)

	result, err := rec.SyncStatus(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, result.Changed)
}

func TestSyncStatusNotSubmitted(t *testing.T) {
	store := newMockStore()
	store.apps[42] = testApplication() // external_id пуст

	rec := bankapi.NewReconciler(store, &bankapi.SimulatedTransport{}, testRegistry(t), nil)

	_, err := rec.SyncStatus(context.Background(), 42)
	require.ErrorIs(t, err, bankapi.ErrNotSubmitted)
}

type staticTransport struct {
	ticket *bankapi.Ticket
}

func (t *staticTransport) AddTicket(ctx context.Context, app *models.Application, payload bankapi.Payload) (*bankapi.Ticket, error) {
	return t.ticket, nil
}

func (t *staticTransport) TicketInfo(ctx context.Context, app *models.Application) (*bankapi.Ticket, error) {
	return t.ticket, nil
}
