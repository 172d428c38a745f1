package product

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Rules are the configured business minimums.
type Rules struct {
	MinQuantity  int64
	MinUnitPrice decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{MinQuantity: 1, MinUnitPrice: decimal.NewFromInt(1)}
}

// Validate checks the quantity and unit price present in proposed against
// the minimums. It returns field errors keyed by column name; an empty map
// means the proposal is acceptable.
func (r Rules) Validate(proposed map[string]any) map[string]string {
	errs := map[string]string{}
	if raw, ok := proposed[string(FieldQuantity)]; ok {
		v, ok := Canonical(FieldQuantity, raw)
		switch {
		case !ok:
			errs[string(FieldQuantity)] = "Quantity must be a whole number."
		case parseIntUnchecked(v) < r.MinQuantity:
			errs[string(FieldQuantity)] = fmt.Sprintf("Quantity must be at least %s.", strconv.FormatInt(r.MinQuantity, 10))
		}
	}
	if raw, ok := proposed[string(FieldUnitPrice)]; ok {
		v, ok := Canonical(FieldUnitPrice, raw)
		if !ok {
			errs[string(FieldUnitPrice)] = "Unit Price must be a number."
		} else if decimal.RequireFromString(v).LessThan(r.MinUnitPrice) {
			errs[string(FieldUnitPrice)] = fmt.Sprintf("Unit Price must be at least %s.", r.MinUnitPrice.StringFixed(2))
		}
	}
	if raw, ok := proposed[string(FieldStatus)]; ok {
		if _, ok := Canonical(FieldStatus, raw); !ok {
			errs[string(FieldStatus)] = "Status must be active or inactive."
		}
	}
	return errs
}
