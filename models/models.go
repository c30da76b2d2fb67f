package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Сущность Заявки
type Application struct {
	ID              int             `db:"id" json:"id"`
	ExternalID      string          `db:"external_id" json:"externalId"`
	ProductType     string          `db:"product_type" json:"productType" validate:"required"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	TermMonths      int             `db:"term_months" json:"termMonths"`
	GuaranteeType   string          `db:"guarantee_type" json:"guaranteeType"`
	TenderLaw       string          `db:"tender_law" json:"tenderLaw"`
	TenderNumber    string          `db:"tender_number" json:"tenderNumber"`
	GosContractData GosContractData `db:"goscontract_data" json:"goscontractData"`
	Status          string          `db:"status" json:"status"`
	StatusID        int             `db:"status_id" json:"statusId"`
	BankStatus      string          `db:"bank_status" json:"bankStatus"`
	RevisionMessage string          `db:"revision_message" json:"revisionMessage"`
	RejectReason    string          `db:"reject_reason" json:"rejectReason"`
	FullClientData  JSONMap         `db:"full_client_data" json:"fullClientData"`
	CompanyID       int             `db:"company_id" json:"companyId"`
	CreatedBy       int             `db:"created_by" json:"createdBy"`
	AssignedPartner int             `db:"assigned_partner" json:"assignedPartner"`
	SubmittedAt     *time.Time      `db:"submitted_at" json:"submittedAt"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"-"`
}

// Данные госконтракта внутри заявки (JSONB)
type GosContractData struct {
	PurchaseNumber   string      `json:"purchase_number"`
	Subject          string      `json:"subject"`
	IsCloseAuction   string      `json:"is_close_auction"`
	IsSingleSupplier string      `json:"is_single_supplier"`
	ContractNumber   string      `json:"contract_number"`
	Beneficiary      Beneficiary `json:"beneficiary"`
}

// Бенефициар госконтракта
type Beneficiary struct {
	INN          string         `json:"inn"`
	LegalAddress AddressedValue `json:"legal_address"`
}

type AddressedValue struct {
	Value string `json:"value"`
}

// Сущность Компании (профиль принципала)
type Company struct {
	ID        int    `db:"id" json:"id"`
	INN       string `db:"inn" json:"inn" validate:"required"`
	KPP       string `db:"kpp" json:"kpp"`
	OGRN      string `db:"ogrn" json:"ogrn"`
	Name      string `db:"name" json:"name"`
	ShortName string `db:"short_name" json:"shortName"`

	LegalAddress  string `db:"legal_address" json:"legalAddress"`
	ActualAddress string `db:"actual_address" json:"actualAddress"`
	PostAddress   string `db:"post_address" json:"postAddress"`

	DirectorName     string `db:"director_name" json:"directorName"`
	DirectorPosition string `db:"director_position" json:"directorPosition"`
	PassportSeries   string `db:"passport_series" json:"passportSeries"`
	PassportNumber   string `db:"passport_number" json:"passportNumber"`
	PassportIssuedBy string `db:"passport_issued_by" json:"passportIssuedBy"`
	PassportIssuedAt string `db:"passport_issued_at" json:"passportIssuedAt"`
	PassportCode     string `db:"passport_code" json:"passportCode"`

	FoundersData     FoundersList     `db:"founders_data" json:"foundersData"`
	BankAccountsData BankAccountsList `db:"bank_accounts_data" json:"bankAccountsData"`

	// Основной счет (legacy, используется когда bank_accounts_data пуст)
	BankName        string `db:"bank_name" json:"bankName"`
	BankBIC         string `db:"bank_bic" json:"bankBic"`
	BankAccount     string `db:"bank_account" json:"bankAccount"`
	BankCorrAccount string `db:"bank_corr_account" json:"bankCorrAccount"`

	ContactPerson string `db:"contact_person" json:"contactPerson"`
	ContactPhone  string `db:"contact_phone" json:"contactPhone"`
	ContactEmail  string `db:"contact_email" json:"contactEmail"`
	Website       string `db:"website" json:"website"`
	MchdFile      string `db:"mchd_file" json:"mchdFile"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// Учредитель компании (элемент founders_data)
type Founder struct {
	FullName          string `json:"full_name"`
	INN               string `json:"inn"`
	ShareRelative     string `json:"share_relative"`
	LegalAddress      string `json:"legal_address"`
	ActualAddress     string `json:"actual_address"`
	PassportSeries    string `json:"passport_series"`
	PassportNumber    string `json:"passport_number"`
	PassportIssuedAt  string `json:"passport_issued_at"`
	PassportAuthority string `json:"passport_authority"`
	PassportCode      string `json:"passport_code"`
	BirthPlace        string `json:"birth_place"`
	BirthDate         string `json:"birth_date"`
	Gender            int    `json:"gender"`
	Citizenship       string `json:"citizenship"`
}

// Расчетный счет компании (элемент bank_accounts_data)
type BankAccount struct {
	BankName string `json:"bank_name"`
	BankBIK  string `json:"bank_bik"`
	Account  string `json:"account"`
}

// Сущность Документа
type Document struct {
	ID             int       `db:"id" json:"id"`
	DocumentTypeID int       `db:"document_type_id" json:"documentTypeId"`
	ProductType    string    `db:"product_type" json:"productType"`
	FileKey        string    `db:"file_key" json:"fileKey"`
	Name           string    `db:"name" json:"name"`
	Status         string    `db:"status" json:"status" validate:"oneof=pending verified rejected not_allowed"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Справочник статусов банка (приложение A, read-only)
type ApplicationStatusDefinition struct {
	StatusID       int    `db:"status_id" json:"statusId"`
	ProductType    string `db:"product_type" json:"productType"`
	Name           string `db:"name" json:"name"`
	InternalStatus string `db:"internal_status" json:"internalStatus"`
	SortOrder      int    `db:"sort_order" json:"sortOrder"`
	IsTerminal     bool   `db:"is_terminal" json:"isTerminal"`
	IsActive       bool   `db:"is_active" json:"isActive"`
}

// Справочник типов документов банка (приложение B, read-only)
type DocumentTypeDefinition struct {
	DocumentTypeID int    `db:"document_type_id" json:"documentTypeId"`
	ProductType    string `db:"product_type" json:"productType"`
	Name           string `db:"name" json:"name"`
	Source         string `db:"source" json:"source" validate:"oneof=auto agent bank agent_bank"`
	IsActive       bool   `db:"is_active" json:"isActive"`
}

// Строка исходящей почты (email_outbox)
type EmailOutboxItem struct {
	ID          int            `db:"id" json:"id"`
	EventType   string         `db:"event_type" json:"eventType"`
	Subject     string         `db:"subject" json:"subject"`
	Message     string         `db:"message" json:"message"`
	FromEmail   string         `db:"from_email" json:"fromEmail"`
	Recipients  pq.StringArray `db:"recipients" json:"recipients"`
	Status      string         `db:"status" json:"status" validate:"oneof=pending sent failed"`
	Attempts    int            `db:"attempts" json:"attempts"`
	MaxAttempts int            `db:"max_attempts" json:"maxAttempts"`
	NextRetryAt time.Time      `db:"next_retry_at" json:"nextRetryAt"`
	LastError   string         `db:"last_error" json:"lastError"`
	SentAt      *time.Time     `db:"sent_at" json:"sentAt"`
	Metadata    JSONMap        `db:"metadata" json:"metadata"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"-"`
}
