package handlers_test

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agentcrm/internal/bankapi"
	"agentcrm/internal/handlers"
	"agentcrm/internal/handlers/testutils"
	"agentcrm/models"

	"github.com/stretchr/testify/require"
)

// MockStorage реализует StorageInterface
type MockStorage struct {
	app          *models.Application
	docs         []models.Document
	documentsErr error
	outboxItem   *models.EmailOutboxItem
	outboxCounts map[string]int
}

func (m *MockStorage) GetApplication(ctx context.Context, id int) (*models.Application, error) {
	if m.app == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.app
	return &copied, nil
}

func (m *MockStorage) WithApplicationLock(ctx context.Context, id int, fn func(a *models.Application) error) error {
	if m.app == nil {
		return sql.ErrNoRows
	}
	copied := *m.app
	if err := fn(&copied); err != nil {
		return err
	}
	*m.app = copied
	return nil
}

func (m *MockStorage) GetApplicationDocuments(ctx context.Context, applicationID int) ([]models.Document, error) {
	return m.docs, m.documentsErr
}

func (m *MockStorage) GetOutboxItem(ctx context.Context, id int) (*models.EmailOutboxItem, error) {
	if m.outboxItem == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.outboxItem
	return &copied, nil
}

func (m *MockStorage) CountOutboxByStatus(ctx context.Context, status string) (int, error) {
	return m.outboxCounts[status], nil
}

// MockBank реализует BankService
type MockBank struct {
	SendFunc func(ctx context.Context, applicationID int) (*bankapi.SubmissionResult, error)
}

func (m *MockBank) Send(ctx context.Context, applicationID int) (*bankapi.SubmissionResult, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, applicationID)
	}
	return &bankapi.SubmissionResult{
		TicketID:   "SIM-42-100",
		BankStatus: "Отправлено (Phase 1)",
		Message:    "Заявка отправлена в банк",
	}, nil
}

// MockSync реализует SyncService
type MockSync struct {
	SyncStatusFunc     func(ctx context.Context, applicationID int) (*bankapi.SyncResult, error)
	ProcessWebhookFunc func(ctx context.Context, in bankapi.WebhookInput) (*bankapi.WebhookResult, error)
}

func (m *MockSync) SyncStatus(ctx context.Context, applicationID int) (*bankapi.SyncResult, error) {
	if m.SyncStatusFunc != nil {
		return m.SyncStatusFunc(ctx, applicationID)
	}
	return &bankapi.SyncResult{BankStatus: "Проверка документов", StatusID: 210}, nil
}

func (m *MockSync) ProcessWebhook(ctx context.Context, in bankapi.WebhookInput) (*bankapi.WebhookResult, error) {
	if m.ProcessWebhookFunc != nil {
		return m.ProcessWebhookFunc(ctx, in)
	}
	return &bankapi.WebhookResult{EventID: "evt-1", Success: true, ApplicationID: 42}, nil
}

func newTestHandler(store *MockStorage) *handlers.Handler {
	return handlers.NewHandler(store, &MockBank{}, &MockSync{})
}

func sampleApplication() *models.Application {
	return &models.Application{
		ID:          42,
		ProductType: models.ProductBankGuarantee,
		Status:      models.StatusInReview,
		ExternalID:  "SIM-42-100",
		CompanyID:   7,
	}
}

func TestPingHandler(t *testing.T) {
	handler := newTestHandler(&MockStorage{})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	w := httptest.NewRecorder()

	handler.PingHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", string(body))
}

func TestGetApplicationHandler(t *testing.T) {
	handler := newTestHandler(&MockStorage{app: sampleApplication()})

	req := httptest.NewRequest(http.MethodGet, "/api/applications/42", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.GetApplicationHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "SIM-42-100")
}

func TestGetApplicationHandlerNotFound(t *testing.T) {
	handler := newTestHandler(&MockStorage{})

	req := httptest.NewRequest(http.MethodGet, "/api/applications/99", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "99"})
	w := httptest.NewRecorder()

	handler.GetApplicationHandler(w, req)

	require.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestGetApplicationHandlerBadID(t *testing.T) {
	handler := newTestHandler(&MockStorage{app: sampleApplication()})

	req := httptest.NewRequest(http.MethodGet, "/api/applications/abc", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "abc"})
	w := httptest.NewRecorder()

	handler.GetApplicationHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestSendApplicationHandler(t *testing.T) {
	handler := newTestHandler(&MockStorage{app: sampleApplication()})

	req := httptest.NewRequest(http.MethodPost, "/api/applications/42/send", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.SendApplicationHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "SIM-42-100")
}

func TestSendApplicationHandlerAlreadySubmitted(t *testing.T) {
	bank := &MockBank{
		SendFunc: func(ctx context.Context, applicationID int) (*bankapi.SubmissionResult, error) {
			return nil, bankapi.ErrAlreadySubmitted
		},
	}
	handler := handlers.NewHandler(&MockStorage{app: sampleApplication()}, bank, &MockSync{})

	req := httptest.NewRequest(http.MethodPost, "/api/applications/42/send", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.SendApplicationHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestSendApplicationHandlerBankRejected(t *testing.T) {
	bank := &MockBank{
		SendFunc: func(ctx context.Context, applicationID int) (*bankapi.SubmissionResult, error) {
			return nil, &bankapi.BankRejectedError{Message: "ИНН не найден в ЕГРЮЛ"}
		},
	}
	handler := handlers.NewHandler(&MockStorage{app: sampleApplication()}, bank, &MockSync{})

	req := httptest.NewRequest(http.MethodPost, "/api/applications/42/send", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.SendApplicationHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	// Сообщение банка передается наружу как есть
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	require.Contains(t, string(body), "ИНН не найден в ЕГРЮЛ")
}

func TestSendApplicationHandlerTransportError(t *testing.T) {
	bank := &MockBank{
		SendFunc: func(ctx context.Context, applicationID int) (*bankapi.SubmissionResult, error) {
			return nil, &bankapi.TransportError{Timeout: true, Err: context.DeadlineExceeded}
		},
	}
	handler := handlers.NewHandler(&MockStorage{app: sampleApplication()}, bank, &MockSync{})

	req := httptest.NewRequest(http.MethodPost, "/api/applications/42/send", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.SendApplicationHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	// Детали сетевого сбоя наружу не уходят
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	require.NotContains(t, string(body), "deadline")
}

func TestSyncApplicationStatusHandler(t *testing.T) {
	handler := newTestHandler(&MockStorage{app: sampleApplication()})

	req := httptest.NewRequest(http.MethodPost, "/api/applications/42/sync", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.SyncApplicationStatusHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Проверка документов")
}

func TestSyncApplicationStatusHandlerNotSubmitted(t *testing.T) {
	sync := &MockSync{
		SyncStatusFunc: func(ctx context.Context, applicationID int) (*bankapi.SyncResult, error) {
			return nil, bankapi.ErrNotSubmitted
		},
	}
	handler := handlers.NewHandler(&MockStorage{app: sampleApplication()}, &MockBank{}, sync)

	req := httptest.NewRequest(http.MethodPost, "/api/applications/42/sync", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.SyncApplicationStatusHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestChangeApplicationStatusHandler(t *testing.T) {
	store := &MockStorage{app: sampleApplication()}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPut,
		"/api/applications/42/status?status=info_requested&message=Приложите+устав", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.ChangeApplicationStatusHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "info_requested")
	require.Equal(t, models.StatusInfoRequested, store.app.Status)
	require.Equal(t, "Приложите устав", store.app.RevisionMessage)
}

func TestChangeApplicationStatusHandlerRejectReason(t *testing.T) {
	store := &MockStorage{app: sampleApplication()}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPut,
		"/api/applications/42/status?status=rejected&message=Плохая+отчетность", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.ChangeApplicationStatusHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.Equal(t, models.StatusRejected, store.app.Status)
	require.Equal(t, "Плохая отчетность", store.app.RejectReason)
}

func TestChangeApplicationStatusHandlerInvalidTransition(t *testing.T) {
	store := &MockStorage{app: sampleApplication()} // in_review
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/applications/42/status?status=won", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.ChangeApplicationStatusHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	require.Equal(t, models.StatusInReview, store.app.Status)
}

func TestChangeApplicationStatusHandlerUnknownStatus(t *testing.T) {
	handler := newTestHandler(&MockStorage{app: sampleApplication()})

	req := httptest.NewRequest(http.MethodPut, "/api/applications/42/status?status=frozen", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.ChangeApplicationStatusHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestGetApplicationDocumentsHandler(t *testing.T) {
	store := &MockStorage{
		app: sampleApplication(),
		docs: []models.Document{
			{ID: 1, DocumentTypeID: 21, Name: "Паспорт генерального директора"},
		},
	}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/applications/42/documents", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"applicationId": "42"})
	w := httptest.NewRecorder()

	handler.GetApplicationDocumentsHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Паспорт генерального директора")
}

func TestOutboxStatsHandler(t *testing.T) {
	store := &MockStorage{
		outboxCounts: map[string]int{
			models.OutboxPending: 3,
			models.OutboxSent:    10,
			models.OutboxFailed:  1,
		},
	}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/outbox/stats", nil)
	w := httptest.NewRecorder()

	handler.OutboxStatsHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `"pending":3`)
	require.Contains(t, string(body), `"sent":10`)
	require.Contains(t, string(body), `"failed":1`)
}

func TestGetOutboxItemHandler(t *testing.T) {
	store := &MockStorage{
		outboxItem: &models.EmailOutboxItem{
			ID:        5,
			EventType: "admin_application_sent",
			Subject:   "Заявка №42 отправлена в банк",
			Status:    models.OutboxSent,
		},
	}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/outbox/5", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"outboxId": "5"})
	w := httptest.NewRecorder()

	handler.GetOutboxItemHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "admin_application_sent")
}

func TestGetOutboxItemHandlerNotFound(t *testing.T) {
	handler := newTestHandler(&MockStorage{})

	req := httptest.NewRequest(http.MethodGet, "/api/outbox/99", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"outboxId": "99"})
	w := httptest.NewRecorder()

	handler.GetOutboxItemHandler(w, req)

	require.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestBankWebhookHandlerJSON(t *testing.T) {
	var got bankapi.WebhookInput
	sync := &MockSync{
		ProcessWebhookFunc: func(ctx context.Context, in bankapi.WebhookInput) (*bankapi.WebhookResult, error) {
			got = in
			return &bankapi.WebhookResult{EventID: "evt-1", Success: true, ApplicationID: 42}, nil
		},
	}
	handler := handlers.NewHandler(&MockStorage{}, &MockBank{}, sync)

	reqBody := `{"external_id": "1234567", "status_id": 710, "status_name": "Одобрено"}`
	req := httptest.NewRequest(http.MethodPost, "/api/bank/webhook", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.BankWebhookHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "evt-1")
	require.Equal(t, "1234567", got.ExternalID)
	require.Equal(t, 710, got.StatusID)
	require.Equal(t, "Одобрено", got.StatusName)
}

func TestBankWebhookHandlerForm(t *testing.T) {
	var got bankapi.WebhookInput
	sync := &MockSync{
		ProcessWebhookFunc: func(ctx context.Context, in bankapi.WebhookInput) (*bankapi.WebhookResult, error) {
			got = in
			return &bankapi.WebhookResult{EventID: "evt-2", Success: true}, nil
		},
	}
	handler := handlers.NewHandler(&MockStorage{}, &MockBank{}, sync)

	form := "ticket_id=1234567&status_id=520&status_name=Не актуальна"
	req := httptest.NewRequest(http.MethodPost, "/api/bank/webhook", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.BankWebhookHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.Equal(t, "1234567", got.ExternalID)
	require.Equal(t, 520, got.StatusID)
}

func TestBankWebhookHandlerMissingStatus(t *testing.T) {
	handler := newTestHandler(&MockStorage{})

	reqBody := `{"external_id": "1234567"}`
	req := httptest.NewRequest(http.MethodPost, "/api/bank/webhook", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.BankWebhookHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestBankWebhookHandlerUnknownTicket(t *testing.T) {
	sync := &MockSync{
		ProcessWebhookFunc: func(ctx context.Context, in bankapi.WebhookInput) (*bankapi.WebhookResult, error) {
			return &bankapi.WebhookResult{EventID: "evt-3", Error: "application not found"}, nil
		},
	}
	handler := handlers.NewHandler(&MockStorage{}, &MockBank{}, sync)

	reqBody := `{"external_id": "нет-такого", "status_id": 710}`
	req := httptest.NewRequest(http.MethodPost, "/api/bank/webhook", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.BankWebhookHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	// Банку всегда отвечаем 200, иначе он будет ретраить вечно
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "application not found")
}
