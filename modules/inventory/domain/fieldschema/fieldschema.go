package fieldschema

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ProductsTable is the form document every product form is stored under.
const ProductsTable = "products"

const LogTypeLogic = "logic"

var ErrFieldNotFound = errors.New("form field not found")

// Entity is one field of a dynamic form. JSSource is opaque client-side
// validation code and is never executed here.
type Entity struct {
	DBKey    string
	Label    string
	JSSource string
	Required bool
}

type Form struct {
	TableName string
	Entities  []Entity
	UpdatedAt time.Time
}

func (f *Form) Entity(dbKey string) (Entity, bool) {
	if f == nil {
		return Entity{}, false
	}
	for _, e := range f.Entities {
		if e.DBKey == dbKey {
			return e, true
		}
	}
	return Entity{}, false
}

// Log records a change of one field's validation logic.
type Log struct {
	ID        int64
	FieldName string
	OldLogic  string
	NewLogic  string
	LogType   string
	CreatedBy int64
	CreatedAt time.Time
}

// DiffLogic returns one log per entity in next whose JSSource differs from
// the stored form.
func DiffLogic(current *Form, next []Entity, actorID int64) []*Log {
	var logs []*Log
	for _, e := range next {
		old, _ := current.Entity(e.DBKey)
		if old.JSSource == e.JSSource {
			continue
		}
		logs = append(logs, &Log{
			FieldName: e.DBKey,
			OldLogic:  old.JSSource,
			NewLogic:  e.JSSource,
			LogType:   LogTypeLogic,
			CreatedBy: actorID,
		})
	}
	return logs
}

// Normalize trims keys and labels and drops entities without a key.
func Normalize(entities []Entity) []Entity {
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		e.DBKey = strings.TrimSpace(e.DBKey)
		e.Label = strings.TrimSpace(e.Label)
		if e.DBKey == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

type FormRepository interface {
	Get(ctx context.Context, tableName string) (*Form, error)
	Upsert(ctx context.Context, form *Form) (*Form, error)
}

type LogRepository interface {
	Create(ctx context.Context, l *Log) error
	List(ctx context.Context, limit, offset int) ([]*Log, error)
	Count(ctx context.Context) (int64, error)
}

// ColumnRepository lists the editable columns of a relational table.
type ColumnRepository interface {
	EditableColumns(ctx context.Context, tableName string) ([]string, error)
}
