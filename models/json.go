package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB-типы для вложенных коллекций. Хранятся в Postgres как jsonb,
// в Go — как обычные значения.

type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	return scanJSON(src, m)
}

type FoundersList []Founder

func (l FoundersList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Founder{})
	}
	return json.Marshal(l)
}

func (l *FoundersList) Scan(src any) error {
	return scanJSON(src, l)
}

type BankAccountsList []BankAccount

func (l BankAccountsList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]BankAccount{})
	}
	return json.Marshal(l)
}

func (l *BankAccountsList) Scan(src any) error {
	return scanJSON(src, l)
}

func (g GosContractData) Value() (driver.Value, error) {
	return json.Marshal(g)
}

func (g *GosContractData) Scan(src any) error {
	return scanJSON(src, g)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
