package outbox

import (
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"
)

// Класс ошибки доставки. Постоянные ошибки останавливают ретраи сразу,
// временные — откладывают строку по расписанию бэкоффа.
type Class int

const (
	ClassUnknown Class = iota
	ClassTemporary
	ClassPermanentAuth
	ClassPermanentRecipient
	ClassPermanentServer
)

func (c Class) Permanent() bool {
	switch c {
	case ClassPermanentAuth, ClassPermanentRecipient, ClassPermanentServer:
		return true
	}
	return false
}

func (c Class) String() string {
	switch c {
	case ClassTemporary:
		return "temporary"
	case ClassPermanentAuth:
		return "permanent_auth"
	case ClassPermanentRecipient:
		return "permanent_recipient"
	case ClassPermanentServer:
		return "permanent_server"
	default:
		return "unknown"
	}
}

// Classify разбирает ошибку SMTP-доставки. Коды сервера приходят как
// *textproto.Error из net/smtp.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch {
		case protoErr.Code == 530 || protoErr.Code == 534 || protoErr.Code == 535:
			return ClassPermanentAuth
		case protoErr.Code == 550 || protoErr.Code == 551 || protoErr.Code == 553:
			return ClassPermanentRecipient
		case protoErr.Code >= 500:
			return ClassPermanentServer
		case protoErr.Code >= 400:
			return ClassTemporary
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTemporary
	}
	if errors.Is(err, io.EOF) {
		return ClassTemporary
	}

	msg := err.Error()
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection refused") {
		return ClassTemporary
	}
	return ClassUnknown
}
