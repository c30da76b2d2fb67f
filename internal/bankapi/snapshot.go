package bankapi

import (
	"time"

	"agentcrm/models"
)

// Snapshot копирует анкету компании в сериализуемую структуру для
// full_client_data. Банк рассматривает заявку по данным на момент
// отправки: последующие правки анкеты снимок не трогают.
// Запись снимка в заявку идемпотентна — если full_client_data уже
// заполнен, он не перезаписывается (проверка на стороне клиента
// отправки, под блокировкой строки).
func Snapshot(company *models.Company, mchdURL string) models.JSONMap {
	if company == nil {
		return nil
	}

	founders := company.FoundersData
	if founders == nil {
		founders = models.FoundersList{}
	}
	accounts := company.BankAccountsData
	if accounts == nil {
		accounts = models.BankAccountsList{}
	}

	return models.JSONMap{
		"inn":        company.INN,
		"kpp":        company.KPP,
		"ogrn":       company.OGRN,
		"name":       company.Name,
		"short_name": company.ShortName,

		"legal_address":  company.LegalAddress,
		"actual_address": company.ActualAddress,
		"post_address":   company.PostAddress,

		"director_name":      company.DirectorName,
		"director_position":  company.DirectorPosition,
		"passport_series":    company.PassportSeries,
		"passport_number":    company.PassportNumber,
		"passport_issued_by": company.PassportIssuedBy,
		"passport_issued_at": company.PassportIssuedAt,
		"passport_code":      company.PassportCode,

		"founders_data":      founders,
		"bank_accounts_data": accounts,

		"bank_name":         company.BankName,
		"bank_bic":          company.BankBIC,
		"bank_account":      company.BankAccount,
		"bank_corr_account": company.BankCorrAccount,

		"contact_person": company.ContactPerson,
		"contact_phone":  company.ContactPhone,
		"contact_email":  company.ContactEmail,
		"website":        company.Website,
		"mchd_file_url":  mchdURL,

		"created_at": company.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": company.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
