// Package refdata держит справочники банка (приложения A и B) в памяти.
// Банк говорит числовыми кодами, бизнес-логика — внутренними статусами;
// весь перевод между ними идет через эти таблицы.
package refdata

import (
	"context"
	"fmt"
	"sync/atomic"

	"agentcrm/models"
)

type Store interface {
	ListStatusDefinitions(ctx context.Context) ([]models.ApplicationStatusDefinition, error)
	ListDocumentTypeDefinitions(ctx context.Context) ([]models.DocumentTypeDefinition, error)
}

type statusKey struct {
	statusID    int
	productType string
}

type docTypeKey struct {
	documentTypeID int
	productType    string
}

// Tables — неизменяемый срез справочников. После создания не мутирует,
// читается без блокировок.
type Tables struct {
	statuses        map[statusKey]models.ApplicationStatusDefinition
	statusesAnyProd map[int]models.ApplicationStatusDefinition
	docTypes        map[docTypeKey]models.DocumentTypeDefinition
	docTypesAnyProd map[int]models.DocumentTypeDefinition
}

func New(statuses []models.ApplicationStatusDefinition, docTypes []models.DocumentTypeDefinition) *Tables {
	t := &Tables{
		statuses:        make(map[statusKey]models.ApplicationStatusDefinition),
		statusesAnyProd: make(map[int]models.ApplicationStatusDefinition),
		docTypes:        make(map[docTypeKey]models.DocumentTypeDefinition),
		docTypesAnyProd: make(map[int]models.DocumentTypeDefinition),
	}
	for _, def := range statuses {
		if !def.IsActive {
			continue
		}
		t.statuses[statusKey{def.StatusID, def.ProductType}] = def
		if _, ok := t.statusesAnyProd[def.StatusID]; !ok {
			t.statusesAnyProd[def.StatusID] = def
		}
	}
	for _, def := range docTypes {
		if !def.IsActive {
			continue
		}
		t.docTypes[docTypeKey{def.DocumentTypeID, def.ProductType}] = def
		if _, ok := t.docTypesAnyProd[def.DocumentTypeID]; !ok {
			t.docTypesAnyProd[def.DocumentTypeID] = def
		}
	}
	return t
}

// LookupStatus ищет статус по (status_id, product_type), при промахе —
// по любому продукту с таким status_id.
func (t *Tables) LookupStatus(statusID int, productType string) (*models.ApplicationStatusDefinition, bool) {
	if def, ok := t.statuses[statusKey{statusID, productType}]; ok {
		return &def, true
	}
	if def, ok := t.statusesAnyProd[statusID]; ok {
		return &def, true
	}
	return nil, false
}

// LookupDocType ищет тип документа по (document_type_id, product_type)
// с тем же кросс-продуктовым фолбэком.
func (t *Tables) LookupDocType(documentTypeID int, productType string) (*models.DocumentTypeDefinition, bool) {
	if def, ok := t.docTypes[docTypeKey{documentTypeID, productType}]; ok {
		return &def, true
	}
	if def, ok := t.docTypesAnyProd[documentTypeID]; ok {
		return &def, true
	}
	return nil, false
}

// Registry отдает актуальный снимок справочников и умеет перечитывать
// их из БД без рестарта. Каждый вызов Tables() видит согласованный срез.
type Registry struct {
	store   Store
	current atomic.Pointer[Tables]
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) Reload(ctx context.Context) error {
	statuses, err := r.store.ListStatusDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load status definitions: %w", err)
	}
	docTypes, err := r.store.ListDocumentTypeDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load document type definitions: %w", err)
	}
	r.current.Store(New(statuses, docTypes))
	return nil
}

func (r *Registry) Tables() *Tables {
	if t := r.current.Load(); t != nil {
		return t
	}
	return New(nil, nil)
}
