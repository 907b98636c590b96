package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground struct validation behind one instance shared
// across services and handlers.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks struct tags and returns ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return ToValidationErrors(err)
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationErrors is the error type handlers map to 400 responses.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Message
	}
	return strings.Join(parts, "; ")
}

// ToValidationErrors converts library errors to the service error type.
func ToValidationErrors(err error) ValidationErrors {
	var out ValidationErrors

	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: fmt.Sprintf("field %s failed rule %s", fe.Field(), fe.Tag()),
			})
		}
		return out
	}

	out = append(out, FieldError{Message: err.Error()})
	return out
}
