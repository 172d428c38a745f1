package dtos

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/pkg/constants"
	"github.com/stockledger/stockledger/pkg/serrors"
)

func validate(d any, fieldName func(string) string) (map[string]string, bool) {
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return map[string]string{}, true
	}
	validatorErrs, ok := errs.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": errs.Error()}, false
	}
	return serrors.ProcessValidatorErrors(validatorErrs, fieldName), false
}

type BulkDeleteDTO struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=500,dive,gt=0"`
}

func (d *BulkDeleteDTO) Ok(ctx context.Context) (map[string]string, bool) {
	return validate(d, func(field string) string {
		if field == "IDs" {
			return "ids"
		}
		return ""
	})
}

type DecisionDTO struct {
	RequestID int64  `json:"requestId" validate:"required,gt=0"`
	Decision  string `json:"decision" validate:"required,oneof=approved rejected approve reject"`
	Reason    string `json:"reason" validate:"max=1000"`
}

func (d *DecisionDTO) Normalize() {
	d.Decision = strings.ToLower(strings.TrimSpace(d.Decision))
	d.Reason = strings.TrimSpace(d.Reason)
}

func (d *DecisionDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validate(d, func(field string) string {
		switch field {
		case "RequestID":
			return "requestId"
		case "Decision":
			return "decision"
		case "Reason":
			return "reason"
		}
		return ""
	})
}

type SettingDTO struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

func (d *SettingDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Key = strings.TrimSpace(d.Key)
	d.Value = strings.TrimSpace(d.Value)
	return validate(d, nil)
}

type FormEntityDTO struct {
	DBKey    string `json:"dbKey" validate:"required,max=63"`
	Label    string `json:"label" validate:"max=255"`
	JSSource string `json:"jsSource" validate:"max=20000"`
	Required bool   `json:"required"`
}

type SaveFormDTO struct {
	TableName string          `json:"tableName"`
	Entities  []FormEntityDTO `json:"entities" validate:"dive"`
}

func (d *SaveFormDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.TableName = strings.TrimSpace(d.TableName)
	if d.TableName == "" {
		d.TableName = fieldschema.ProductsTable
	}
	return validate(d, func(field string) string {
		switch field {
		case "DBKey":
			return "dbKey"
		case "JSSource":
			return "jsSource"
		}
		return ""
	})
}

func (d *SaveFormDTO) ToEntities() []fieldschema.Entity {
	out := make([]fieldschema.Entity, 0, len(d.Entities))
	for _, e := range d.Entities {
		out = append(out, fieldschema.Entity{DBKey: e.DBKey, Label: e.Label, JSSource: e.JSSource, Required: e.Required})
	}
	return out
}

type FieldLogicDTO struct {
	JSSource string `json:"jsSource" validate:"max=20000"`
}

func (d *FieldLogicDTO) Ok(ctx context.Context) (map[string]string, bool) {
	return validate(d, func(field string) string {
		if field == "JSSource" {
			return "jsSource"
		}
		return ""
	})
}
