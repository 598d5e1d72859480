package transaction

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks transaction payloads against the intake field rules.
// Failures are collected, not fail-fast: the returned ValidationError lists
// every rule the payload broke.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with JSON field names in error output.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report errors against the wire field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate checks the request against all intake rules:
//   - transaction_id: non-empty
//   - payer_name: non-empty
//   - payer_email: valid email address form
//   - amount: numeric
//   - currency: exactly 3 characters, when present
//
// payment_status and service_type are unconstrained (Normalize trims them).
// Returns nil when the payload passes, or a *ValidationError listing every
// failed field.
func (v *Validator) Validate(req *Request) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError only happens for non-struct input, which
		// cannot occur here. Surface it as a single opaque field error.
		return &ValidationError{Errors: []FieldError{{Field: "payload", Message: "invalid payload"}}}
	}

	fieldErrors := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return &ValidationError{Errors: fieldErrors}
}

// messageFor maps a failed rule to a safe client-facing message.
func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", fe.Field())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Normalize trims surrounding whitespace from the unconstrained optional
// fields. Called after validation passes and before the store write, so the
// persisted record carries the trimmed values.
func Normalize(req *Request) {
	req.PaymentStatus = strings.TrimSpace(req.PaymentStatus)
	req.ServiceType = strings.TrimSpace(req.ServiceType)
}
