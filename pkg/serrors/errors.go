package serrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindForbidden   Kind = "forbidden"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

// BaseError is the error type every service returns to its callers.
type BaseError struct {
	Kind      Kind
	Code      string
	Message   string
	LocaleKey string
	Fields    map[string]string
	Cause     error
}

func (e *BaseError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *BaseError) Unwrap() error { return e.Cause }

// Is matches another *BaseError with the same kind and code, so package
// level sentinels work with errors.Is.
func (e *BaseError) Is(target error) bool {
	var t *BaseError
	if !errors.As(target, &t) {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

func (e *BaseError) WithCause(cause error) *BaseError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{Kind: KindInternal, Code: code, Message: message, LocaleKey: localeKey}
}

func Validation(code, message string, fields map[string]string) *BaseError {
	return &BaseError{Kind: KindValidation, Code: code, Message: message, Fields: fields}
}

func NotFound(code, message string, cause error) *BaseError {
	return &BaseError{Kind: KindNotFound, Code: code, Message: message, Cause: cause}
}

func Conflict(code, message string, cause error) *BaseError {
	return &BaseError{Kind: KindConflict, Code: code, Message: message, Cause: cause}
}

func Forbidden(code, message string) *BaseError {
	return &BaseError{Kind: KindForbidden, Code: code, Message: message}
}

func Persistence(code, message string, cause error) *BaseError {
	return &BaseError{Kind: KindPersistence, Code: code, Message: message, Cause: cause}
}

func NewFieldRequiredError(field, localeKey string) *BaseError {
	return &BaseError{
		Kind:      KindValidation,
		Code:      "FIELD_REQUIRED",
		Message:   fmt.Sprintf("%s is required", field),
		LocaleKey: localeKey,
		Fields:    map[string]string{field: "required"},
	}
}

// KindOf returns the kind of the first BaseError in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var be *BaseError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

type ValidationErrors map[string]string

// ProcessValidatorErrors turns validator output into field -> message pairs.
// fieldName maps a struct field to the name exposed to clients; an empty
// result falls back to the lower-cased struct field.
func ProcessValidatorErrors(errs validator.ValidationErrors, fieldName func(string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		name := ""
		if fieldName != nil {
			name = fieldName(fe.Field())
		}
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		out[name] = describeTag(fe)
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
