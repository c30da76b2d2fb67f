package migrations

import (
	"database/sql"
	"embed"
	"log"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var fs embed.FS

// Run выполняет все миграции, включая посев справочников банка
func Run(connString string) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set dialect: %v", err)
	}
	goose.SetBaseFS(fs)

	if err := goose.Up(db, "sql"); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
}
