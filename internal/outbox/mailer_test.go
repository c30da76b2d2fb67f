package outbox_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"agentcrm/internal/outbox"

	"github.com/stretchr/testify/require"
)

type smtpSession struct {
	mu   sync.Mutex
	cmds []string
	data string
}

// startFakeSMTPServer поднимает минимальный SMTP-сервер на loopback и
// записывает диалог одной сессии.
func startFakeSMTPServer(t *testing.T) (host, port string, session *smtpSession) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	session = &smtpSession{}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		write := func(s string) { conn.Write([]byte(s + "\r\n")) }
		write("220 localhost ESMTP ready")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			session.mu.Lock()
			session.cmds = append(session.cmds, line)
			session.mu.Unlock()

			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				write("250-localhost")
				write("250 8BITMIME")
			case line == "DATA":
				write("354 End data with <CR><LF>.<CR><LF>")
				var b strings.Builder
				for {
					dataLine, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if strings.TrimRight(dataLine, "\r\n") == "." {
						break
					}
					b.WriteString(dataLine)
				}
				session.mu.Lock()
				session.data = b.String()
				session.mu.Unlock()
				write("250 Ok: queued")
			case line == "QUIT":
				write("221 Bye")
				return
			default:
				write("250 Ok")
			}
		}
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port, session
}

func TestSMTPMailerSend(t *testing.T) {
	host, port, session := startFakeSMTPServer(t)
	mailer := outbox.NewSMTPMailer(host, port, "", "")

	err := mailer.Send(context.Background(), "noreply@agentcrm.ru",
		[]string{"admin@example.ru"}, "Проверка", "Тело письма")
	require.NoError(t, err)

	session.mu.Lock()
	defer session.mu.Unlock()
	cmds := strings.Join(session.cmds, "\n")
	require.Contains(t, cmds, "MAIL FROM:<noreply@agentcrm.ru>")
	require.Contains(t, cmds, "RCPT TO:<admin@example.ru>")
	require.Contains(t, session.data, "From: noreply@agentcrm.ru")
	require.Contains(t, session.data, "To: admin@example.ru")
	require.Contains(t, session.data, "Subject: ")
	require.Contains(t, session.data, "Тело письма")
}

func TestSMTPMailerContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		// Принимаем соединение и молчим: приветствия не будет
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(10 * time.Second)
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	mailer := outbox.NewSMTPMailer(host, port, "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = mailer.Send(ctx, "noreply@agentcrm.ru", []string{"admin@example.ru"}, "Проверка", "Тело")
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}
