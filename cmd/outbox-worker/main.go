// process_email_outbox: воркер очереди исходящей почты.
// Один прогон по умолчанию, --loop для постоянной работы.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentcrm/db"
	"agentcrm/internal/config"
	"agentcrm/internal/outbox"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	loop := flag.Bool("loop", false, "run continuously instead of a single batch")
	sleep := flag.Int("sleep", 0, "seconds to sleep between empty batches (overrides env)")
	batchSize := flag.Int("batch-size", 0, "rows per batch (overrides env)")
	cleanupEvery := flag.Int("cleanup-every", 100, "run cleanup every N iterations")
	flag.Parse()

	cfg := config.Load()
	if cfg.PostgresConn == "" {
		log.Fatal("POSTGRES_CONN env variable is not set")
	}

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	outboxCfg := outbox.Config{
		MaxAttempts:     cfg.Outbox.MaxAttempts,
		RetryDelays:     cfg.Outbox.RetryDelays,
		BatchSize:       cfg.Outbox.BatchSize,
		WorkerSleep:     cfg.Outbox.WorkerSleep,
		SentRetention:   cfg.Outbox.SentRetention,
		FailedRetention: cfg.Outbox.FailedRetention,
		DefaultFrom:     cfg.DefaultFromEmail,
	}
	if *sleep > 0 {
		outboxCfg.WorkerSleep = time.Duration(*sleep) * time.Second
	}
	if *batchSize > 0 {
		outboxCfg.BatchSize = *batchSize
	}

	store := db.NewStorage(dbConn)
	mailer := outbox.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	svc := outbox.NewService(store, mailer, outboxCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *loop {
		log.Print("Starting email outbox worker")
		if err := svc.Run(ctx, *cleanupEvery); err != nil && ctx.Err() == nil {
			log.Fatalf("Outbox worker stopped: %v", err)
		}
		log.Print("Outbox worker stopped")
		return
	}

	n, err := svc.ProcessBatch(ctx)
	if err != nil {
		log.Fatalf("Outbox batch failed: %v", err)
	}
	sent, failed, err := svc.Cleanup(ctx)
	if err != nil {
		log.Fatalf("Outbox cleanup failed: %v", err)
	}
	log.Printf("Processed %d items, cleanup removed %d sent and %d failed", n, sent, failed)
}
