package db

import (
	"context"
	"fmt"
	"time"

	"agentcrm/models"

	"github.com/jmoiron/sqlx"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Application (Заявка)

func (s *Storage) CreateApplication(ctx context.Context, a *models.Application) error {
	query := `
        INSERT INTO application
            (product_type, amount, term_months, guarantee_type, tender_law, tender_number,
             goscontract_data, status, company_id, created_by, assigned_partner)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`
	if a.Status == "" {
		a.Status = models.StatusDraft
	}
	return s.db.QueryRowContext(ctx, query,
		a.ProductType, a.Amount, a.TermMonths, a.GuaranteeType, a.TenderLaw, a.TenderNumber,
		a.GosContractData, a.Status, a.CompanyID, a.CreatedBy, a.AssignedPartner).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Storage) GetApplication(ctx context.Context, id int) (*models.Application, error) {
	a := &models.Application{}
	query := `SELECT * FROM application WHERE id=$1`
	err := s.db.GetContext(ctx, a, query, id)
	return a, err
}

func (s *Storage) GetApplicationByExternalID(ctx context.Context, externalID string) (*models.Application, error) {
	a := &models.Application{}
	query := `SELECT * FROM application WHERE external_id=$1`
	err := s.db.GetContext(ctx, a, query, externalID)
	return a, err
}

// WithApplicationLock выполняет fn над заявкой под блокировкой строки
// (SELECT ... FOR UPDATE) и сохраняет изменения одной транзакцией.
// Отправка в банк, вебхуки и синхронизация статуса сериализуются здесь:
// external_id и full_client_data назначаются не более одного раза.
func (s *Storage) WithApplicationLock(ctx context.Context, id int, fn func(a *models.Application) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	a := &models.Application{}
	query := `SELECT * FROM application WHERE id=$1 FOR UPDATE`
	if err := tx.GetContext(ctx, a, query, id); err != nil {
		return fmt.Errorf("lock application %d: %w", id, err)
	}

	if err := fn(a); err != nil {
		return err
	}

	update := `
        UPDATE application
        SET external_id=$1, status=$2, status_id=$3, bank_status=$4,
            revision_message=$5, reject_reason=$6, full_client_data=$7,
            submitted_at=$8, updated_at=NOW()
        WHERE id=$9`
	_, err = tx.ExecContext(ctx, update,
		a.ExternalID, a.Status, a.StatusID, a.BankStatus,
		a.RevisionMessage, a.RejectReason, a.FullClientData,
		a.SubmittedAt, a.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Company (Компания)

func (s *Storage) CreateCompany(ctx context.Context, c *models.Company) error {
	query := `
        INSERT INTO company
            (inn, kpp, ogrn, name, short_name,
             legal_address, actual_address, post_address,
             director_name, director_position,
             passport_series, passport_number, passport_issued_by, passport_issued_at, passport_code,
             founders_data, bank_accounts_data,
             bank_name, bank_bic, bank_account, bank_corr_account,
             contact_person, contact_phone, contact_email, website, mchd_file)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
             $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
        RETURNING id, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		c.INN, c.KPP, c.OGRN, c.Name, c.ShortName,
		c.LegalAddress, c.ActualAddress, c.PostAddress,
		c.DirectorName, c.DirectorPosition,
		c.PassportSeries, c.PassportNumber, c.PassportIssuedBy, c.PassportIssuedAt, c.PassportCode,
		c.FoundersData, c.BankAccountsData,
		c.BankName, c.BankBIC, c.BankAccount, c.BankCorrAccount,
		c.ContactPerson, c.ContactPhone, c.ContactEmail, c.Website, c.MchdFile).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *Storage) GetCompany(ctx context.Context, id int) (*models.Company, error) {
	c := &models.Company{}
	query := `SELECT * FROM company WHERE id=$1`
	err := s.db.GetContext(ctx, c, query, id)
	return c, err
}

// Document (Документ)

func (s *Storage) CreateDocument(ctx context.Context, d *models.Document) error {
	query := `
        INSERT INTO document (document_type_id, product_type, file_key, name, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	if d.Status == "" {
		d.Status = models.DocumentPending
	}
	return s.db.QueryRowContext(ctx, query,
		d.DocumentTypeID, d.ProductType, d.FileKey, d.Name, d.Status).
		Scan(&d.ID, &d.CreatedAt)
}

// AttachDocument привязывает документ к заявке по идентификатору,
// файл не дублируется. Позиция определяет порядок в пакете для банка.
func (s *Storage) AttachDocument(ctx context.Context, applicationID, documentID int) error {
	query := `
        INSERT INTO application_document (application_id, document_id, position)
        VALUES ($1, $2,
            (SELECT COALESCE(MAX(position), 0) + 1 FROM application_document WHERE application_id = $1))
        ON CONFLICT (application_id, document_id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, applicationID, documentID)
	return err
}

func (s *Storage) GetApplicationDocuments(ctx context.Context, applicationID int) ([]models.Document, error) {
	query := `
        SELECT d.* FROM document d
        JOIN application_document ad ON ad.document_id = d.id
        WHERE ad.application_id = $1
        ORDER BY ad.position ASC`
	docs := []models.Document{}
	err := s.db.SelectContext(ctx, &docs, query, applicationID)
	return docs, err
}

// Справочники (приложения A и B)

func (s *Storage) ListStatusDefinitions(ctx context.Context) ([]models.ApplicationStatusDefinition, error) {
	defs := []models.ApplicationStatusDefinition{}
	query := `SELECT * FROM application_status_definition ORDER BY product_type, sort_order`
	err := s.db.SelectContext(ctx, &defs, query)
	return defs, err
}

func (s *Storage) ListDocumentTypeDefinitions(ctx context.Context) ([]models.DocumentTypeDefinition, error) {
	defs := []models.DocumentTypeDefinition{}
	query := `SELECT * FROM document_type_definition ORDER BY product_type, document_type_id`
	err := s.db.SelectContext(ctx, &defs, query)
	return defs, err
}

// EmailOutbox (очередь исходящей почты)

func (s *Storage) CreateOutboxItem(ctx context.Context, item *models.EmailOutboxItem) error {
	query := `
        INSERT INTO email_outbox
            (event_type, subject, message, from_email, recipients,
             status, attempts, max_attempts, next_retry_at, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		item.EventType, item.Subject, item.Message, item.FromEmail, item.Recipients,
		item.Status, item.Attempts, item.MaxAttempts, item.NextRetryAt, item.Metadata).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (s *Storage) GetOutboxItem(ctx context.Context, id int) (*models.EmailOutboxItem, error) {
	item := &models.EmailOutboxItem{}
	query := `SELECT * FROM email_outbox WHERE id=$1`
	err := s.db.GetContext(ctx, item, query, id)
	return item, err
}

// DueOutboxItemIDs возвращает id строк, готовых к доставке, в порядке
// (next_retry_at, created_at).
func (s *Storage) DueOutboxItemIDs(ctx context.Context, limit int) ([]int, error) {
	query := `
        SELECT id FROM email_outbox
        WHERE status = 'pending' AND next_retry_at <= NOW()
        ORDER BY next_retry_at ASC, created_at ASC
        LIMIT $1`
	ids := []int{}
	err := s.db.SelectContext(ctx, &ids, query, limit)
	return ids, err
}

// WithOutboxItemLock выполняет fn над строкой очереди под блокировкой
// FOR UPDATE SKIP LOCKED. Если строку уже держит другой воркер, fn не
// вызывается и возвращается nil: строку доставит тот, кто ее держит.
func (s *Storage) WithOutboxItemLock(ctx context.Context, id int, fn func(item *models.EmailOutboxItem) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	items := []models.EmailOutboxItem{}
	query := `SELECT * FROM email_outbox WHERE id=$1 FOR UPDATE SKIP LOCKED`
	if err := tx.SelectContext(ctx, &items, query, id); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	item := &items[0]

	if err := fn(item); err != nil {
		return err
	}

	update := `
        UPDATE email_outbox
        SET status=$1, attempts=$2, next_retry_at=$3, last_error=$4, sent_at=$5, updated_at=NOW()
        WHERE id=$6`
	_, err = tx.ExecContext(ctx, update,
		item.Status, item.Attempts, item.NextRetryAt, item.LastError, item.SentAt, item.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) DeleteSentOutboxBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM email_outbox WHERE status='sent' AND sent_at < $1`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Storage) DeleteFailedOutboxBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM email_outbox WHERE status='failed' AND updated_at < $1`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Storage) CountOutboxByStatus(ctx context.Context, status string) (int, error) {
	var count int
	query := `SELECT COUNT(1) FROM email_outbox WHERE status=$1`
	err := s.db.GetContext(ctx, &count, query, status)
	return count, err
}
