package book

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationErrorCode is the code reported for every generic validation failure.
const ValidationErrorCode = "400"

var ErrBookNotFound = errors.New("book not found")

type ErrResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrResponse) Error() string {
	return e.Message
}

var ErrResponseInternal = ErrResponse{"500", "internal server error"}

// ValidationError is a validation failure raised explicitly by request handling code.
type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) ValidationError {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e ValidationError) Error() string {
	return e.Message
}

/* Converts the failure to the payload sent back to the client. */
func (e ValidationError) Response() ErrResponse {
	return ErrResponse{Code: ValidationErrorCode, Message: e.Message}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors lists every invalid field of a rejected entity, in reporting order.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return "invalid fields: " + strings.Join(msgs, ", ")
}
