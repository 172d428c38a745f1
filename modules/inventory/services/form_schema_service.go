package services

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/eventbus"
	"github.com/stockledger/stockledger/pkg/httpapi"
	"github.com/stockledger/stockledger/pkg/serrors"
)

type FormSchemaService struct {
	forms     fieldschema.FormRepository
	logs      fieldschema.LogRepository
	columns   fieldschema.ColumnRepository
	publisher eventbus.EventBus
	pager     pager
}

func NewFormSchemaService(
	forms fieldschema.FormRepository,
	logs fieldschema.LogRepository,
	columns fieldschema.ColumnRepository,
	publisher eventbus.EventBus,
	config ConfigProvider,
	maxPageSize int,
) *FormSchemaService {
	return &FormSchemaService{
		forms:     forms,
		logs:      logs,
		columns:   columns,
		publisher: publisher,
		pager:     pager{config: config, maxSize: maxPageSize},
	}
}

func (s *FormSchemaService) Get(ctx context.Context, tableName string) (*fieldschema.Form, error) {
	form, err := s.forms.Get(ctx, tableName)
	if err != nil {
		return nil, serrors.Persistence("FORM_LOAD_FAILED", "failed to load form", err)
	}
	return form, nil
}

// Save replaces the form's entities. Every entity whose validation logic
// changed gets a field_schema_logs row; the rows roll back when the document
// write fails.
func (s *FormSchemaService) Save(ctx context.Context, a actor.Actor, tableName string, entities []fieldschema.Entity) (*fieldschema.Form, error) {
	if !a.IsAdmin() {
		return nil, ErrAdminRequired
	}
	entities = fieldschema.Normalize(entities)
	if err := s.checkEntities(ctx, tableName, entities); err != nil {
		return nil, err
	}

	var (
		saved   *fieldschema.Form
		changed []string
	)
	err := inTxFn(ctx, func(txCtx context.Context) error {
		current, err := s.forms.Get(txCtx, tableName)
		if err != nil {
			return serrors.Persistence("FORM_LOAD_FAILED", "failed to load form", err)
		}
		for _, l := range fieldschema.DiffLogic(current, entities, a.ID) {
			if err := s.logs.Create(txCtx, l); err != nil {
				return err
			}
			changed = append(changed, l.FieldName)
		}
		saved, err = s.forms.Upsert(txCtx, &fieldschema.Form{TableName: tableName, Entities: entities})
		if err != nil {
			return serrors.Persistence("FORM_SAVE_FAILED", "failed to save form", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	logWithFields(ctx, logrus.InfoLevel, "inventory.forms.saved", logrus.Fields{
		"actor_id":       a.ID,
		"table":          tableName,
		"changed_fields": changed,
	})
	if s.publisher != nil {
		s.publisher.Publish(&FormSchemaSaved{Actor: a, TableName: tableName, ChangedFields: changed})
	}
	return saved, nil
}

// UpdateFieldLogic changes the validation logic of one existing field.
func (s *FormSchemaService) UpdateFieldLogic(ctx context.Context, a actor.Actor, tableName, dbKey, jsSource string) (*fieldschema.Form, error) {
	if !a.IsAdmin() {
		return nil, ErrAdminRequired
	}
	current, err := s.Get(ctx, tableName)
	if err != nil {
		return nil, err
	}
	entities := slices.Clone(current.Entities)
	idx := slices.IndexFunc(entities, func(e fieldschema.Entity) bool { return e.DBKey == dbKey })
	if idx < 0 {
		return nil, mapStoreError(fieldschema.ErrFieldNotFound)
	}
	entities[idx].JSSource = jsSource
	return s.Save(ctx, a, tableName, entities)
}

func (s *FormSchemaService) ListLogs(ctx context.Context, page, limit int) (*httpapi.Page[*fieldschema.Log], error) {
	page, limit, offset, err := s.pager.normalize(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	items, err := s.logs.List(ctx, limit, offset)
	if err != nil {
		return nil, mapStoreError(err)
	}
	total, err := s.logs.Count(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &httpapi.Page[*fieldschema.Log]{Items: nonNil(items), Total: total, Page: page, Limit: limit}, nil
}

func (s *FormSchemaService) EditableColumns(ctx context.Context, tableName string) ([]string, error) {
	cols, err := s.columns.EditableColumns(ctx, tableName)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return nonNil(cols), nil
}

// checkEntities rejects duplicate keys and keys that are not editable
// columns of the table.
func (s *FormSchemaService) checkEntities(ctx context.Context, tableName string, entities []fieldschema.Entity) error {
	columns, err := s.EditableColumns(ctx, tableName)
	if err != nil {
		return err
	}
	fields := map[string]string{}
	seen := map[string]bool{}
	for _, e := range entities {
		switch {
		case seen[e.DBKey]:
			fields[e.DBKey] = "duplicate field"
		case len(columns) > 0 && !slices.Contains(columns, e.DBKey):
			fields[e.DBKey] = "unknown column"
		}
		seen[e.DBKey] = true
	}
	if len(fields) > 0 {
		return serrors.Validation("FORM_INVALID", "form has invalid fields", fields)
	}
	return nil
}
