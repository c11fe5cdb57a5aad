package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/books-search/cmd/api/book"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report fields by their json names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

/* Checks the declared field constraints and lists the failures in declaration order. */
func validateEntry(entry BookEntry) error {
	err := validate.Struct(entry)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrs := make(book.FieldErrors, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fieldErrs = append(fieldErrs, book.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return fieldErrs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	default:
		return "is invalid"
	}
}
