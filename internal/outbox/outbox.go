// Package outbox — надежная очередь исходящей почты. Состояние ретраев
// живет в строках email_outbox, а не в таймерах процесса: перезапуск
// воркера продолжает расписание с того же места.
package outbox

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"agentcrm/models"
)

type Store interface {
	CreateOutboxItem(ctx context.Context, item *models.EmailOutboxItem) error
	DueOutboxItemIDs(ctx context.Context, limit int) ([]int, error)
	WithOutboxItemLock(ctx context.Context, id int, fn func(item *models.EmailOutboxItem) error) error
	DeleteSentOutboxBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteFailedOutboxBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var ErrNoRecipients = errors.New("no valid recipients")

// Расписание бэкоффа по умолчанию; последняя задержка повторяется
// до max_attempts.
var DefaultRetryDelays = []time.Duration{
	30 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	2 * time.Hour,
	6 * time.Hour,
}

type Config struct {
	MaxAttempts     int
	RetryDelays     []time.Duration
	BatchSize       int
	WorkerSleep     time.Duration
	SentRetention   time.Duration
	FailedRetention time.Duration
	DefaultFrom     string
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 30
	}
	if len(c.RetryDelays) == 0 {
		c.RetryDelays = DefaultRetryDelays
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.WorkerSleep <= 0 {
		c.WorkerSleep = 10 * time.Second
	}
	if c.SentRetention <= 0 {
		c.SentRetention = 14 * 24 * time.Hour
	}
	if c.FailedRetention <= 0 {
		c.FailedRetention = 90 * 24 * time.Hour
	}
	return c
}

type Service struct {
	store  Store
	mailer Mailer
	cfg    Config
	now    func() time.Time
}

func NewService(store Store, mailer Mailer, cfg Config) *Service {
	return &Service{store: store, mailer: mailer, cfg: cfg.withDefaults(), now: time.Now}
}

type Message struct {
	EventType          string
	Subject            string
	Body               string
	From               string
	Recipients         []string
	Metadata           models.JSONMap
	AttemptImmediately bool
}

type EnqueueResult struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

// NormalizeRecipients чистит список получателей: трим, нижний регистр,
// дедупликация. Идемпотентна.
func NormalizeRecipients(recipients []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range recipients {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || !strings.Contains(r, "@") || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// Enqueue ставит письмо в очередь. Без AttemptImmediately транспортные
// ошибки до вызывающего не доходят — письмо просто остается в очереди.
func (s *Service) Enqueue(ctx context.Context, msg Message) (*EnqueueResult, error) {
	recipients := NormalizeRecipients(msg.Recipients)
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	from := msg.From
	if from == "" {
		from = s.cfg.DefaultFrom
	}

	item := &models.EmailOutboxItem{
		EventType:   msg.EventType,
		Subject:     msg.Subject,
		Message:     msg.Body,
		FromEmail:   from,
		Recipients:  recipients,
		Status:      models.OutboxPending,
		MaxAttempts: s.cfg.MaxAttempts,
		NextRetryAt: s.now(),
		Metadata:    msg.Metadata,
	}
	if err := s.store.CreateOutboxItem(ctx, item); err != nil {
		return nil, err
	}

	result := &EnqueueResult{ID: item.ID, Status: "queued"}
	if !msg.AttemptImmediately {
		return result, nil
	}

	err := s.store.WithOutboxItemLock(ctx, item.ID, func(it *models.EmailOutboxItem) error {
		s.deliver(ctx, it)
		switch it.Status {
		case models.OutboxSent:
			result.Status = "sent"
		case models.OutboxFailed:
			result.Status = "failed"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// deliver — одна попытка доставки. Вызывается только под блокировкой
// строки; мутирует item, запись делает WithOutboxItemLock.
func (s *Service) deliver(ctx context.Context, item *models.EmailOutboxItem) {
	err := s.mailer.Send(ctx, item.FromEmail, item.Recipients, item.Subject, item.Message)
	now := s.now()

	if err == nil {
		item.Status = models.OutboxSent
		item.SentAt = &now
		item.LastError = ""
		log.Printf("outbox: item %d event_type %s: sent to %d recipients",
			item.ID, item.EventType, len(item.Recipients))
		return
	}

	item.Attempts++
	item.LastError = err.Error()
	class := Classify(err)

	if class.Permanent() || item.Attempts >= item.MaxAttempts {
		item.Status = models.OutboxFailed
		log.Printf("outbox: item %d event_type %s: giving up after %d attempts (%s): %v",
			item.ID, item.EventType, item.Attempts, class, err)
		return
	}

	item.Status = models.OutboxPending
	idx := item.Attempts - 1
	if idx >= len(s.cfg.RetryDelays) {
		idx = len(s.cfg.RetryDelays) - 1
	}
	item.NextRetryAt = now.Add(s.cfg.RetryDelays[idx])
	log.Printf("outbox: item %d event_type %s: attempt %d failed (%s), retry at %s: %v",
		item.ID, item.EventType, item.Attempts, class, item.NextRetryAt.Format(time.RFC3339), err)
}

// ProcessBatch доставляет готовые к отправке строки. Возвращает число
// обработанных.
func (s *Service) ProcessBatch(ctx context.Context) (int, error) {
	ids, err := s.store.DueOutboxItemIDs(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, id := range ids {
		err := s.store.WithOutboxItemLock(ctx, id, func(item *models.EmailOutboxItem) error {
			// Перепроверка под блокировкой: строку мог успеть
			// забрать другой воркер
			if item.Status != models.OutboxPending || item.NextRetryAt.After(s.now()) {
				return nil
			}
			s.deliver(ctx, item)
			processed++
			return nil
		})
		if err != nil {
			log.Printf("outbox: item %d: delivery transaction failed: %v", id, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return processed, nil
}

// Cleanup удаляет отправленные и зависшие в failed строки старше
// сроков хранения.
func (s *Service) Cleanup(ctx context.Context) (int64, int64, error) {
	now := s.now()
	sent, err := s.store.DeleteSentOutboxBefore(ctx, now.Add(-s.cfg.SentRetention))
	if err != nil {
		return 0, 0, err
	}
	failed, err := s.store.DeleteFailedOutboxBefore(ctx, now.Add(-s.cfg.FailedRetention))
	if err != nil {
		return sent, 0, err
	}
	return sent, failed, nil
}

// Run крутит воркер до отмены контекста. Очистка выполняется каждые
// cleanupEvery итераций.
func (s *Service) Run(ctx context.Context, cleanupEvery int) error {
	if cleanupEvery <= 0 {
		cleanupEvery = 100
	}
	iteration := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.ProcessBatch(ctx)
		if err != nil {
			log.Printf("outbox: batch failed: %v", err)
		}

		iteration++
		if iteration%cleanupEvery == 0 {
			if sent, failed, err := s.Cleanup(ctx); err != nil {
				log.Printf("outbox: cleanup failed: %v", err)
			} else if sent+failed > 0 {
				log.Printf("outbox: cleanup removed %d sent, %d failed", sent, failed)
			}
		}

		if n == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.WorkerSleep):
			}
		}
	}
}
