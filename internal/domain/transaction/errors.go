package transaction

import (
	"fmt"
	"strings"
)

// FieldError describes a single failed validation rule.
// Message is a safe, client-facing string with no internal details.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every field rule a payload failed.
// Validation collects all failures rather than stopping at the first, so the
// client can fix the whole payload in one round trip.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
