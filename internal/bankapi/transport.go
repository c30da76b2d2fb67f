package bankapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"agentcrm/models"
)

type TicketStatus struct {
	ID      int
	Name    string
	Comment string
}

// Ticket — ответ банка по заявке
type Ticket struct {
	ID                string
	Status            TicketStatus
	ManagerName       string
	PaymentStatusName string
}

// Transport — стратегия доставки до банка. Симулированная (Phase 1)
// и боевая HTTP-реализация выбираются при сборке приложения.
type Transport interface {
	AddTicket(ctx context.Context, app *models.Application, payload Payload) (*Ticket, error)
	TicketInfo(ctx context.Context, app *models.Application) (*Ticket, error)
}

// SimulatedTransport — Phase 1: без сетевого I/O, детерминированные
// синтетические тикеты.
type SimulatedTransport struct {
	Now func() time.Time
}

func (t *SimulatedTransport) AddTicket(ctx context.Context, app *models.Application, payload Payload) (*Ticket, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return &Ticket{
		ID:     fmt.Sprintf("SIM-%d-%d", app.ID, now().Unix()),
		Status: TicketStatus{Name: "Отправлено (Phase 1)"},
	}, nil
}

func (t *SimulatedTransport) TicketInfo(ctx context.Context, app *models.Application) (*Ticket, error) {
	// Возвращаем текущее локальное состояние: синхронизация в Phase 1
	// ничего не меняет.
	return &Ticket{
		ID:     app.ExternalID,
		Status: TicketStatus{ID: app.StatusID, Name: app.BankStatus},
	}, nil
}

const (
	addTicketTimeout  = 60 * time.Second
	ticketInfoTimeout = 30 * time.Second
)

// HTTPTransport — боевой клиент API Реалист Банка.
type HTTPTransport struct {
	baseURL  string
	login    string
	password string
	client   *http.Client
}

func NewHTTPTransport(baseURL, login, password string) *HTTPTransport {
	return &HTTPTransport{
		baseURL:  strings.TrimRight(baseURL, "/"),
		login:    login,
		password: password,
		client:   &http.Client{},
	}
}

func (t *HTTPTransport) AddTicket(ctx context.Context, app *models.Application, payload Payload) (*Ticket, error) {
	ticket, err := t.post(ctx, "/add_ticket", payload.Encode(), addTicketTimeout)
	if err != nil {
		return nil, err
	}
	if ticket.ID == "" {
		return nil, ErrMissingTicketID
	}
	return ticket, nil
}

func (t *HTTPTransport) TicketInfo(ctx context.Context, app *models.Application) (*Ticket, error) {
	form := Payload{}
	form.add("login", t.login)
	form.add("password", t.password)
	form.add("ticket_id", app.ExternalID)
	return t.post(ctx, "/get_ticket_info", form.Encode(), ticketInfoTimeout)
}

func (t *HTTPTransport) post(ctx context.Context, path, body string, timeout time.Duration) (*Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Timeout: isTimeout(err), Err: err}
	}

	var wire wireResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	if wire.Status != "success" {
		return nil, &BankRejectedError{Message: wire.Message}
	}
	return wire.Data.Ticket.toTicket(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Форма ответа банка. Неизвестные поля игнорируются, id приходят
// как числа или строки.
type wireResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Ticket wireTicket `json:"ticket"`
	} `json:"data"`
}

type wireTicket struct {
	ID     json.Number `json:"id"`
	Status struct {
		ID      json.Number `json:"id"`
		Name    string      `json:"name"`
		Comment string      `json:"comment"`
	} `json:"status"`
	Manager struct {
		FullName string `json:"full_name"`
	} `json:"manager"`
	PaymentStatus struct {
		Name string `json:"name"`
	} `json:"payment_status"`
}

func (w wireTicket) toTicket() *Ticket {
	statusID, _ := w.Status.ID.Int64()
	return &Ticket{
		ID:                w.ID.String(),
		Status:            TicketStatus{ID: int(statusID), Name: w.Status.Name, Comment: w.Status.Comment},
		ManagerName:       w.Manager.FullName,
		PaymentStatusName: w.PaymentStatus.Name,
	}
}
