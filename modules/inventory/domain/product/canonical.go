package product

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical converts a proposed value for f into the string form used for
// comparison, storage in old_value/new_value and audit display. ok is false
// when v cannot represent a value of f.
func Canonical(f Field, v any) (string, bool) {
	switch f {
	case FieldQuantity:
		s, ok := numericString(v)
		if !ok {
			return "", false
		}
		return canonicalQuantity(s)
	case FieldUnitPrice:
		s, ok := numericString(v)
		if !ok {
			return "", false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return "", false
		}
		return formatPrice(d), true
	case FieldStatus:
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		st := Status(strings.ToLower(strings.TrimSpace(s)))
		if !st.IsValid() {
			return "", false
		}
		return string(st), true
	case FieldName, FieldCategory, FieldDescription:
		switch t := v.(type) {
		case nil:
			return "", true
		case string:
			return strings.TrimSpace(t), true
		case json.Number:
			return t.String(), true
		case bool, int, int32, int64, float64:
			return strings.TrimSpace(fmt.Sprint(t)), true
		}
	}
	return "", false
}

func numericString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), strings.TrimSpace(t) != ""
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float32:
		return decimal.NewFromFloat32(t).String(), true
	case float64:
		return decimal.NewFromFloat(t).String(), true
	case decimal.Decimal:
		return t.String(), true
	}
	return "", false
}

// canonicalQuantity accepts "10" and "10.0" but not "10.5".
func canonicalQuantity(s string) (string, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return "", false
	}
	n := d.BigInt()
	if !n.IsInt64() {
		return "", false
	}
	return strconv.FormatInt(n.Int64(), 10), true
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseIntUnchecked(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
