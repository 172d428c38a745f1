package product

import (
	"fmt"
	"strings"
)

type Field string

const (
	FieldName        Field = "name"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unit_price"
	FieldCategory    Field = "category"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
)

// MutableFields is the allow-list of columns a change may touch, in the
// order deltas are reported.
var MutableFields = []Field{
	FieldName,
	FieldQuantity,
	FieldUnitPrice,
	FieldCategory,
	FieldDescription,
	FieldStatus,
}

func ParseField(s string) (Field, bool) {
	f := Field(strings.TrimSpace(s))
	for _, m := range MutableFields {
		if m == f {
			return f, true
		}
	}
	return "", false
}

type InvalidValueError struct {
	Field Field
	Value any
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for field %s", e.Value, e.Field)
}
