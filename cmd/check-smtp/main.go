// check_smtp: разовая проверка SMTP-доступа. Коннект, при наличии
// логина AUTH, по запросу тестовое письмо. Ненулевой код выхода при
// любой неудаче.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"agentcrm/internal/config"
	"agentcrm/internal/outbox"
)

type recipientList []string

func (r *recipientList) String() string { return strings.Join(*r, ", ") }

func (r *recipientList) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	var to recipientList
	flag.Var(&to, "to", "recipient for the test email (repeatable)")
	sendTest := flag.Bool("send-test", false, "send a test email after the auth check")
	flag.Parse()

	cfg := config.Load()
	if cfg.SMTP.Host == "" {
		log.Fatal("SMTP_HOST env variable is not set")
	}

	addr := net.JoinHostPort(cfg.SMTP.Host, cfg.SMTP.Port)
	if err := checkAuth(addr, cfg.SMTP.Host, cfg.SMTP.Username, cfg.SMTP.Password); err != nil {
		log.Fatalf("SMTP check failed for %s: %v", addr, err)
	}
	fmt.Printf("SMTP connection to %s OK\n", addr)

	if !*sendTest {
		return
	}

	recipients := outbox.NormalizeRecipients(to)
	if len(recipients) == 0 {
		log.Fatal("--send-test requires at least one valid --to recipient")
	}

	mailer := outbox.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := fmt.Sprintf("Тестовое письмо от check_smtp, %s", time.Now().Format(time.RFC1123Z))
	if err := mailer.Send(ctx, cfg.DefaultFromEmail, recipients, "Проверка SMTP", body); err != nil {
		log.Fatalf("Test email failed: %v", err)
	}
	fmt.Printf("Test email sent to %s\n", strings.Join(recipients, ", "))
	os.Exit(0)
}

// checkAuth устанавливает соединение и при наличии логина проходит
// AUTH, не отправляя письмо.
func checkAuth(addr, host, username, password string) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("helo: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if username != "" {
		auth := smtp.PlainAuth("", username, password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	return client.Quit()
}
