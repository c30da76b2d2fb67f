package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string
	PostgresConn  string

	Bank   BankConfig
	SMTP   SMTPConfig
	Outbox OutboxConfig
	S3     S3Config

	DefaultFromEmail string
	FrontendURL      string
	AdminEmails      []string
}

// Настройки интеграции с банком
type BankConfig struct {
	APIURL   string
	Login    string
	Password string
	Phase1   bool
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Настройки очереди исходящей почты
type OutboxConfig struct {
	MaxAttempts     int
	RetryDelays     []time.Duration
	BatchSize       int
	WorkerSleep     time.Duration
	SentRetention   time.Duration
	FailedRetention time.Duration
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddress: getenv("SERVER_ADDRESS", "0.0.0.0:8080"),
		PostgresConn:  getenv("POSTGRES_CONN", ""),

		Bank: BankConfig{
			APIURL:   getenv("BANK_API_URL", "https://stagebg.realistbank.ru/agent_api1_1"),
			Login:    getenv("BANK_API_LOGIN", ""),
			Password: getenv("BANK_API_PASSWORD", ""),
			Phase1:   getbool("BANK_API_PHASE1_MODE", true),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", "localhost"),
			Port:     getenv("SMTP_PORT", "587"),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
		},
		Outbox: OutboxConfig{
			MaxAttempts:     getint("EMAIL_OUTBOX_MAX_ATTEMPTS", 30),
			RetryDelays:     getdelays("EMAIL_OUTBOX_RETRY_DELAYS_SECONDS", "30,120,300,900,1800,3600,7200,21600"),
			BatchSize:       getint("EMAIL_OUTBOX_BATCH_SIZE", 50),
			WorkerSleep:     time.Duration(getint("EMAIL_OUTBOX_WORKER_SLEEP_SECONDS", 10)) * time.Second,
			SentRetention:   time.Duration(getint("EMAIL_OUTBOX_SENT_RETENTION_DAYS", 14)) * 24 * time.Hour,
			FailedRetention: time.Duration(getint("EMAIL_OUTBOX_FAILED_RETENTION_DAYS", 90)) * 24 * time.Hour,
		},
		S3: S3Config{
			Endpoint:  getenv("AWS_ENDPOINT", ""),
			AccessKey: getenv("AWS_ACCESS_KEY_ID", "minioadmin"),
			SecretKey: getenv("AWS_SECRET_ACCESS_KEY", "minioadmin"),
			Region:    getenv("AWS_DEFAULT_REGION", "us-east-1"),
			Bucket:    getenv("AWS_BUCKET", "documents"),
			UseSSL:    getbool("AWS_USE_SSL", false),
		},

		DefaultFromEmail: getenv("DEFAULT_FROM_EMAIL", "noreply@localhost"),
		FrontendURL:      getenv("FRONTEND_URL", "http://localhost:3000"),
		AdminEmails:      getlist("ADMIN_NOTIFY_EMAILS", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getlist(k, def string) []string {
	v := getenv(k, def)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getdelays(k, def string) []time.Duration {
	var out []time.Duration
	for _, part := range getlist(k, def) {
		seconds, err := strconv.Atoi(part)
		if err != nil || seconds <= 0 {
			continue
		}
		out = append(out, time.Duration(seconds)*time.Second)
	}
	return out
}
