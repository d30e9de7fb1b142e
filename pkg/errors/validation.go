package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation converts validator failures into a field keyed ErrValidation.
func Validation(err error, message string) *Error {
	if message == "" {
		message = ErrValidation.Message
	}
	appErr := Wrap(err, ErrValidation.Code, ErrValidation.Status, message)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		appErr.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			appErr.Fields[fieldName(fe)] = describe(fe)
		}
	}
	return appErr
}

// InvalidField builds a single field validation error.
func InvalidField(field, message string) *Error {
	appErr := Clone(ErrValidation, fmt.Sprintf("%s %s", field, message))
	appErr.Fields = map[string]string{field: message}
	return appErr
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return strings.ToLower(fe.StructField())
	}
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid identifier"
	case "alphanum":
		return "must contain only letters and digits"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
