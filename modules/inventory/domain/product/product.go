package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// DefaultName is used when a product is created without one.
const DefaultName = "New Product"

// NewEntity is the product id of a proposal that creates a product.
const NewEntity int64 = 0

type Product struct {
	ID          int64
	Name        string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Category    string
	Description string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UpdatedBy   *int64
}

func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// Value returns the canonical string form of field f.
func (p *Product) Value(f Field) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldQuantity:
		return formatInt(p.Quantity)
	case FieldUnitPrice:
		return formatPrice(p.UnitPrice)
	case FieldCategory:
		return p.Category
	case FieldDescription:
		return p.Description
	case FieldStatus:
		return string(p.Status)
	}
	return ""
}

// Snapshot captures the canonical values of every mutable field.
func (p *Product) Snapshot() Snapshot {
	s := make(Snapshot, len(MutableFields))
	for _, f := range MutableFields {
		s[f] = p.Value(f)
	}
	return s
}

// Apply returns a copy of p with changes written over it. Every change must
// already be canonical.
func (p *Product) Apply(changes Changes) (*Product, error) {
	out := *p
	for _, c := range changes {
		if err := out.set(c.Field, c.New); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (p *Product) set(f Field, v string) error {
	switch f {
	case FieldName:
		p.Name = v
	case FieldQuantity:
		q, ok := canonicalQuantity(v)
		if !ok {
			return &InvalidValueError{Field: f, Value: v}
		}
		p.Quantity = parseIntUnchecked(q)
	case FieldUnitPrice:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return &InvalidValueError{Field: f, Value: v}
		}
		p.UnitPrice = d
	case FieldCategory:
		p.Category = v
	case FieldDescription:
		p.Description = v
	case FieldStatus:
		if !Status(v).IsValid() {
			return &InvalidValueError{Field: f, Value: v}
		}
		p.Status = Status(v)
	default:
		return &InvalidValueError{Field: f, Value: v}
	}
	return nil
}

// NewDraft builds the product inserted by the privileged creation path.
// Missing quantity and price fall back to the configured minimums.
func NewDraft(payload Payload, rules Rules) (*Product, error) {
	p := &Product{
		Name:      DefaultName,
		Quantity:  rules.MinQuantity,
		UnitPrice: rules.MinUnitPrice,
		Status:    StatusActive,
	}
	changes := make(Changes, 0, len(payload))
	for _, f := range MutableFields {
		v, ok := payload[f]
		if !ok || f == FieldStatus {
			continue
		}
		if f == FieldName && v == "" {
			continue
		}
		changes = append(changes, FieldChange{Field: f, New: v})
	}
	return p.Apply(changes)
}
