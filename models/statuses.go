package models

// Внутренние статусы заявки
const (
	StatusDraft         = "draft"
	StatusPending       = "pending"
	StatusInReview      = "in_review"
	StatusInfoRequested = "info_requested"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
	StatusWon           = "won"
	StatusLost          = "lost"
)

// Типы продуктов
const (
	ProductBankGuarantee   = "bank_guarantee"
	ProductTenderLoan      = "tender_loan"
	ProductContractLoan    = "contract_loan"
	ProductCorporateCredit = "corporate_credit"
	ProductFactoring       = "factoring"
	ProductLeasing         = "leasing"
	ProductInsurance       = "insurance"
)

// Статусы документов
const (
	DocumentPending    = "pending"
	DocumentVerified   = "verified"
	DocumentRejected   = "rejected"
	DocumentNotAllowed = "not_allowed"
)

// Статусы строки исходящей почты
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// Разрешенные переходы для админских операций. Переходы по вебхукам банка
// идут мимо этой таблицы: банк авторитетен, последняя запись побеждает.
var allowedTransitions = map[string][]string{
	StatusDraft:         {StatusPending, StatusInReview, StatusRejected},
	StatusPending:       {StatusInReview, StatusInfoRequested, StatusApproved, StatusRejected},
	StatusInReview:      {StatusInfoRequested, StatusApproved, StatusRejected},
	StatusInfoRequested: {StatusInReview, StatusPending, StatusRejected},
	StatusApproved:      {StatusWon, StatusLost, StatusRejected},
	StatusRejected:      {StatusPending},
	StatusWon:           {},
	StatusLost:          {},
}

// TransitionAllowed проверяет допустимость админского перехода статуса.
func TransitionAllowed(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus сообщает, является ли внутренний статус конечным.
func IsTerminalStatus(status string) bool {
	return status == StatusWon || status == StatusLost
}
