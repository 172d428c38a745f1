package dtos

import (
	"time"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/modules/inventory/services"
)

type ProductDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Quantity    int64     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	UpdatedBy   *int64    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ProductToDTO(p *product.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice.StringFixed(2),
		Category:    p.Category,
		Description: p.Description,
		Status:      string(p.Status),
		UpdatedBy:   p.UpdatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProductListItemDTO carries the latest activity shown as the row badge.
type ProductListItemDTO struct {
	ProductDTO
	LatestStatus    *string `json:"latest_status"`
	LatestField     *string `json:"latest_field"`
	RejectionReason *string `json:"rejection_reason"`
}

func ProductListItemToDTO(p *product.WithStatus) *ProductListItemDTO {
	out := &ProductListItemDTO{ProductDTO: *ProductToDTO(&p.Product)}
	if p.Latest != nil {
		status, field := p.Latest.Status, p.Latest.FieldName
		out.LatestStatus = &status
		out.LatestField = &field
		out.RejectionReason = p.Latest.RejectionReason
	}
	return out
}

type RequestDTO struct {
	ID              int64     `json:"id"`
	EntityID        int64     `json:"entity_id"`
	Kind            string    `json:"kind"`
	FieldName       string    `json:"field_name"`
	OldValue        string    `json:"old_value"`
	NewValue        string    `json:"new_value"`
	Status          string    `json:"status"`
	RequestedBy     int64     `json:"requested_by"`
	AdminID         *int64    `json:"admin_id"`
	RejectionReason *string   `json:"rejection_reason"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func RequestToDTO(r *changerequest.PendingRequest) *RequestDTO {
	kind, field, oldValue, newValue, _ := changerequest.Columns(r.Change)
	return &RequestDTO{
		ID:              r.ID,
		EntityID:        r.EntityID,
		Kind:            string(kind),
		FieldName:       field,
		OldValue:        oldValue,
		NewValue:        newValue,
		Status:          string(r.Status),
		RequestedBy:     r.RequestedBy,
		AdminID:         r.AdminID,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type RequestDetailDTO struct {
	Request *RequestDTO `json:"request"`
	Product *ProductDTO `json:"product"`
}

func RequestDetailToDTO(d *services.RequestDetail) *RequestDetailDTO {
	return &RequestDetailDTO{Request: RequestToDTO(d.Request), Product: ProductToDTO(d.Product)}
}

type ActivityDTO struct {
	ID              int64     `json:"id"`
	EntityType      string    `json:"entity_type"`
	EntityID        int64     `json:"entity_id"`
	FieldName       string    `json:"field_name"`
	OldValue        string    `json:"old_value"`
	NewValue        string    `json:"new_value"`
	Status          string    `json:"status"`
	CreatedBy       int64     `json:"created_by"`
	AdminID         *int64    `json:"admin_id"`
	RejectionReason *string   `json:"rejection_reason"`
	RequestID       *int64    `json:"request_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func ActivityToDTO(e *activity.Entry) *ActivityDTO {
	return &ActivityDTO{
		ID:              e.ID,
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		FieldName:       e.FieldName,
		OldValue:        e.OldValue,
		NewValue:        e.NewValue,
		Status:          string(e.Status),
		CreatedBy:       e.CreatedBy,
		AdminID:         e.AdminID,
		RejectionReason: e.RejectionReason,
		RequestID:       e.RequestID,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

type SubmitResultDTO struct {
	Outcome    string      `json:"outcome"`
	Product    *ProductDTO `json:"product,omitempty"`
	RequestIDs []int64     `json:"requestIds,omitempty"`
}

func SubmitResultToDTO(r *services.SubmitResult) *SubmitResultDTO {
	return &SubmitResultDTO{Outcome: string(r.Outcome), Product: ProductToDTO(r.Product), RequestIDs: r.RequestIDs}
}

type FormDTO struct {
	TableName string          `json:"tableName"`
	Entities  []FormEntityDTO `json:"entities"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

func FormToDTO(f *fieldschema.Form) *FormDTO {
	out := &FormDTO{TableName: f.TableName, Entities: make([]FormEntityDTO, 0, len(f.Entities))}
	for _, e := range f.Entities {
		out.Entities = append(out.Entities, FormEntityDTO{DBKey: e.DBKey, Label: e.Label, JSSource: e.JSSource, Required: e.Required})
	}
	if !f.UpdatedAt.IsZero() {
		updated := f.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

type FieldSchemaLogDTO struct {
	ID        int64     `json:"id"`
	FieldName string    `json:"field_name"`
	OldLogic  string    `json:"old_logic"`
	NewLogic  string    `json:"new_logic"`
	LogType   string    `json:"log_type"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func FieldSchemaLogToDTO(l *fieldschema.Log) *FieldSchemaLogDTO {
	return &FieldSchemaLogDTO{
		ID:        l.ID,
		FieldName: l.FieldName,
		OldLogic:  l.OldLogic,
		NewLogic:  l.NewLogic,
		LogType:   l.LogType,
		CreatedBy: l.CreatedBy,
		CreatedAt: l.CreatedAt,
	}
}

// MapItems converts every item of a page with fn.
func MapItems[T, U any](items []T, fn func(T) U) []U {
	out := make([]U, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
