package bankapi

import (
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"agentcrm/models"
)

// Pair — один ключ формы банка. Payload держится срезом, а не map:
// банк принимает вложенные коллекции в порядке индексов, и порядок
// ключей на проводе должен повторять порядок исходных списков.
type Pair struct {
	Key   string
	Value string
}

type Payload []Pair

func (p *Payload) add(key, value string) {
	*p = append(*p, Pair{Key: key, Value: value})
}

func (p Payload) Get(key string) (string, bool) {
	for _, pair := range p {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return "", false
}

func (p Payload) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Encode кодирует payload как form-urlencoded с сохранением порядка пар.
// url.Values.Encode здесь не подходит: он сортирует ключи.
func (p Payload) Encode() string {
	var b strings.Builder
	for i, pair := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair.Value))
	}
	return b.String()
}

type BuilderConfig struct {
	Login    string
	Password string
	Phase1   bool
	Now      func() time.Time
}

// FileURLFunc разрешает файл документа в скачиваемую банком ссылку.
type FileURLFunc func(doc models.Document) string

// Коды видов гарантии (ticket[bg][type_id])
var guaranteeTypeIDs = map[string]string{
	"application_security": "1",
	"contract_execution":   "2",
	"advance_return":       "3",
	"warranty_obligations": "4",
	"payment_guarantee":    "5",
	"customs_guarantee":    "6",
	"vat_refund":           "7",
}

// Коды законов закупки (ticket[bg][form_id])
var tenderLawFormIDs = map[string]string{
	"44_fz":      "1",
	"223_fz":     "2",
	"615_pp":     "3",
	"185_fz":     "4",
	"kbg":        "5",
	"commercial": "6",
}

var postalCodeRe = regexp.MustCompile(`\d{6}`)

// BuildPayload детерминированно собирает тело запроса add_ticket.
// Два вызова над одними данными дают идентичные пары в одном порядке.
func BuildPayload(app *models.Application, company *models.Company, docs []models.Document, fileURL FileURLFunc, cfg BuilderConfig) (Payload, error) {
	if company == nil {
		return nil, ErrMissingCompany
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	today := now()

	p := Payload{}

	// Аутентификация
	p.add("login", cfg.Login)
	p.add("password", cfg.Password)

	// Тикет
	productID := bankProductID(app.ProductType)
	p.add("ticket[product_id]", productID)

	startAt := today.Format("2006-01-02")
	termDays := app.TermMonths * 30
	if termDays <= 0 {
		termDays = 365
	}
	endAt := today.AddDate(0, 0, termDays).Format("2006-01-02")
	sum := strconv.FormatInt(app.Amount.IntPart(), 10)

	if productID == "1" {
		typeID, ok := guaranteeTypeIDs[app.GuaranteeType]
		if !ok {
			typeID = "2"
		}
		formID, ok := tenderLawFormIDs[app.TenderLaw]
		if !ok {
			formID = "1"
		}
		p.add("ticket[bg][sum]", sum)
		p.add("ticket[bg][start_at_type_id]", "1")
		p.add("ticket[bg][start_at]", startAt)
		p.add("ticket[bg][end_at]", endAt)
		p.add("ticket[bg][type_id]", typeID)
		// Банк пока не различает reason_id и type_id
		p.add("ticket[bg][reason_id]", typeID)
		p.add("ticket[bg][form_id]", formID)
	} else {
		p.add("ticket[kik][sum]", sum)
		p.add("ticket[kik][start_at_type_id]", "1")
		p.add("ticket[kik][start_at]", startAt)
		p.add("ticket[kik][end_at]", endAt)
		p.add("ticket[kik][type_id]", "2")
	}

	// Госконтракт
	gc := app.GosContractData
	purchaseNumber := gc.PurchaseNumber
	if purchaseNumber == "" {
		purchaseNumber = app.TenderNumber
	}
	p.add("goscontract[purchase_number]", purchaseNumber)
	p.add("goscontract[subject]", gc.Subject)
	p.add("goscontract[is_close_auction]", zeroOne(gc.IsCloseAuction))
	p.add("goscontract[is_single_supplier]", zeroOne(gc.IsSingleSupplier))
	p.add("goscontract[contract_number]", gc.ContractNumber)

	// Клиент
	p.add("client[inn]", company.INN)
	addAddressSection(&p, "client[actual_address]", company.ActualAddress, company.LegalAddress)
	addAddressSection(&p, "client[post_address]", company.PostAddress, company.LegalAddress)
	p.add("client[employee_count]", "1")

	contactName := company.ContactPerson
	if contactName == "" {
		contactName = company.DirectorName
	}
	p.add("client[contact_person][full_name]", contactName)
	p.add("client[contact_person][phone]", company.ContactPhone)
	p.add("client[contact_person][email]", company.ContactEmail)
	p.add("client[website]", company.Website)
	p.add("client[is_mchd]", "0")

	// Учредители (в порядке исходного списка)
	idx := 0
	for i, f := range company.FoundersData {
		if f.FullName == "" && f.INN == "" {
			log.Printf("payload: application %d: skipping empty founder record at index %d", app.ID, i)
			continue
		}
		prefix := fmt.Sprintf("client[founders][%d]", idx)
		idx++
		p.add(prefix+"[full_name]", f.FullName)
		p.add(prefix+"[inn]", f.INN)
		p.add(prefix+"[share_relative]", f.ShareRelative)
		p.add(prefix+"[legal_address][value]", f.LegalAddress)
		p.add(prefix+"[legal_address][postal_code]", firstPostalCode(f.LegalAddress))
		p.add(prefix+"[actual_address][value]", f.ActualAddress)
		p.add(prefix+"[actual_address][postal_code]", firstPostalCode(f.ActualAddress))
		p.add(prefix+"[document][series]", f.PassportSeries)
		p.add(prefix+"[document][number]", f.PassportNumber)
		p.add(prefix+"[document][issued_at]", f.PassportIssuedAt)
		p.add(prefix+"[document][authority_name]", f.PassportAuthority)
		p.add(prefix+"[document][authority_code]", f.PassportCode)
		p.add(prefix+"[birth_place]", f.BirthPlace)
		p.add(prefix+"[birth_date]", f.BirthDate)
		gender := f.Gender
		if gender == 0 {
			gender = 1
		}
		p.add(prefix+"[gender]", strconv.Itoa(gender))
		citizen := f.Citizenship
		if citizen == "" {
			citizen = "РФ"
		}
		p.add(prefix+"[citizen]", citizen)
	}

	// Расчетные счета: список из анкеты, либо legacy-поля одним счетом
	if len(company.BankAccountsData) > 0 {
		for i, acc := range company.BankAccountsData {
			prefix := fmt.Sprintf("client[checking_accounts][%d]", i)
			p.add(prefix+"[bank_name]", acc.BankName)
			p.add(prefix+"[bank_bik]", acc.BankBIK)
		}
	} else if company.BankName != "" || company.BankBIC != "" {
		p.add("client[checking_accounts][0][bank_name]", company.BankName)
		p.add("client[checking_accounts][0][bank_bik]", company.BankBIC)
	}

	// Комплаенс-поля с константными значениями
	p.add("client[has_beneficiaries_comment]", "отсутствует")
	if app.ProductType == models.ProductBankGuarantee {
		p.add("client[relationship_purpose]", "получение Гарантии")
	} else {
		p.add("client[relationship_purpose]", "получение кредитных средств")
	}
	p.add("client[expected_relationship_duration]", "долгосрочный")
	p.add("client[business_objectives]", "получение прибыли")
	p.add("client[business_reputation]", "положительная")
	p.add("client[funds_source]", "результат финансовой деятельности")
	p.add("client[has_executive_board]", "0")
	p.add("client[is_pdl]", "0")

	// Бенефициар
	if gc.Beneficiary.INN != "" {
		p.add("beneficiary[inn]", gc.Beneficiary.INN)
		p.add("beneficiary[legal_address][value]", gc.Beneficiary.LegalAddress.Value)
	}

	// Документы (в порядке привязки к заявке)
	for i, doc := range docs {
		prefix := fmt.Sprintf("documents[%d]", i)
		p.add(prefix+"[type_id]", strconv.Itoa(doc.DocumentTypeID))
		p.add(prefix+"[name]", doc.Name)
		var docURL string
		if fileURL != nil {
			docURL = fileURL(doc)
		}
		p.add(prefix+"[file_url]", docURL)
	}

	return p, nil
}

// ValidatePayload проверяет обязательные поля. Пустой список — payload
// годен к отправке.
func ValidatePayload(p Payload, phase1 bool) []string {
	var problems []string

	required := []string{"ticket[product_id]", "client[inn]"}
	if !phase1 {
		required = append([]string{"login", "password"}, required...)
	}
	for _, key := range required {
		if v, ok := p.Get(key); !ok || v == "" {
			problems = append(problems, "missing required field: "+key)
		}
	}

	if inn, _ := p.Get("client[inn]"); inn != "" && !validINN(inn) {
		problems = append(problems, "client[inn] must be 10 or 12 digits")
	}
	return problems
}

func validINN(inn string) bool {
	if len(inn) != 10 && len(inn) != 12 {
		return false
	}
	for _, r := range inn {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func bankProductID(productType string) string {
	switch productType {
	case models.ProductBankGuarantee:
		return "1"
	case models.ProductTenderLoan, models.ProductContractLoan, models.ProductCorporateCredit:
		return "2"
	default:
		log.Printf("payload: unknown product_type %q, defaulting to product_id=1", productType)
		return "1"
	}
}

// Адресная секция: при точном совпадении с юридическим адресом банку
// уходит только флаг равенства, иначе — значение и почтовый индекс.
func addAddressSection(p *Payload, prefix, addr, legalAddr string) {
	if addr == legalAddr {
		p.add(prefix+"[is_equal_to_legal_address]", "1")
		return
	}
	p.add(prefix+"[is_equal_to_legal_address]", "0")
	p.add(prefix+"[value]", addr)
	p.add(prefix+"[postal_code]", firstPostalCode(addr))
}

// firstPostalCode вырезает из адреса первую последовательность из шести цифр.
func firstPostalCode(addr string) string {
	return postalCodeRe.FindString(addr)
}

func zeroOne(v string) string {
	if v == "1" || strings.EqualFold(v, "true") {
		return "1"
	}
	return "0"
}
