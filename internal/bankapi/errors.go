package bankapi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// У заявки нет компании — собирать payload не из чего.
	ErrMissingCompany = errors.New("application has no company")
	// Попытка синхронизации статуса до отправки в банк.
	ErrNotSubmitted = errors.New("application has not been submitted to the bank")
	// Повторная отправка при уже назначенном external_id
	// (кроме доработки из статуса info_requested).
	ErrAlreadySubmitted = errors.New("application already submitted to the bank")
	// Банк ответил success, но не вернул id тикета.
	ErrMissingTicketID = errors.New("bank response has no ticket id")
)

// ValidationError — список проблем payload, найденных до отправки.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "payload validation failed: " + strings.Join(e.Problems, "; ")
}

// BankRejectedError — банк ответил status != success. Сообщение банка
// передается вызывающему как есть, локальное состояние не меняется.
type BankRejectedError struct {
	Message string
}

func (e *BankRejectedError) Error() string {
	return fmt.Sprintf("bank rejected the request: %s", e.Message)
}

// TransportError — сетевая ошибка при обращении к банку.
type TransportError struct {
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("bank request timed out: %v", e.Err)
	}
	return fmt.Sprintf("bank request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError — тело ответа банка не распарсилось как JSON.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("bank returned malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
