package main

import (
	"context"
	"log"
	"net/http"

	"agentcrm/db"
	"agentcrm/db/migrations"
	"agentcrm/internal/bankapi"
	"agentcrm/internal/config"
	"agentcrm/internal/files"
	"agentcrm/internal/handlers"
	"agentcrm/internal/outbox"
	"agentcrm/internal/refdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()
	if cfg.PostgresConn == "" {
		log.Fatal("POSTGRES_CONN env variable is not set")
	}

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	migrations.Run(cfg.PostgresConn)

	store := db.NewStorage(dbConn)

	refs := refdata.NewRegistry(store)
	if err := refs.Reload(context.Background()); err != nil {
		log.Fatalf("Cannot load bank reference tables: %v", err)
	}

	var resolver bankapi.FileResolver
	if cfg.S3.Endpoint != "" {
		r, err := files.NewResolver(files.ConnectionInfo{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			log.Fatalf("Cannot connect to S3: %v", err)
		}
		if err := r.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("Cannot prepare S3 bucket: %v", err)
		}
		resolver = r
	}

	mailer := outbox.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	outboxSvc := outbox.NewService(store, mailer, outbox.Config{
		MaxAttempts:     cfg.Outbox.MaxAttempts,
		RetryDelays:     cfg.Outbox.RetryDelays,
		BatchSize:       cfg.Outbox.BatchSize,
		WorkerSleep:     cfg.Outbox.WorkerSleep,
		SentRetention:   cfg.Outbox.SentRetention,
		FailedRetention: cfg.Outbox.FailedRetention,
		DefaultFrom:     cfg.DefaultFromEmail,
	})
	notifier := outbox.NewNotifications(outboxSvc, cfg.FrontendURL, cfg.AdminEmails)

	// Выбор транспорта — стратегия на этапе сборки: Phase 1 без сети,
	// Phase 2 по HTTP
	var transport bankapi.Transport
	if cfg.Bank.Phase1 {
		transport = &bankapi.SimulatedTransport{}
		log.Print("Bank integration running in Phase 1 (simulated) mode")
	} else {
		transport = bankapi.NewHTTPTransport(cfg.Bank.APIURL, cfg.Bank.Login, cfg.Bank.Password)
	}

	builderCfg := bankapi.BuilderConfig{
		Login:    cfg.Bank.Login,
		Password: cfg.Bank.Password,
		Phase1:   cfg.Bank.Phase1,
	}
	bank := bankapi.NewClient(store, transport, notifier, resolver, builderCfg)
	reconciler := bankapi.NewReconciler(store, transport, refs, notifier)

	h := handlers.NewHandler(store, bank, reconciler)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// заявки
		r.Get("/applications/{applicationId}", h.GetApplicationHandler)
		r.Get("/applications/{applicationId}/documents", h.GetApplicationDocumentsHandler)
		r.Post("/applications/{applicationId}/send", h.SendApplicationHandler)
		r.Post("/applications/{applicationId}/sync", h.SyncApplicationStatusHandler)
		r.Put("/applications/{applicationId}/status", h.ChangeApplicationStatusHandler)
		// колбэки банка
		r.Post("/bank/webhook", h.BankWebhookHandler)
		// очередь исходящей почты
		r.Get("/outbox/stats", h.OutboxStatsHandler)
		r.Get("/outbox/{outboxId}", h.GetOutboxItemHandler)
	})

	log.Printf("Starting server on %s", cfg.ServerAddress)
	log.Fatal(http.ListenAndServe(cfg.ServerAddress, r))
}
