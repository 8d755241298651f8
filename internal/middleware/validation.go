package middleware

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest validates a bound request struct and returns a field-to-
// reason map, or nil when the payload is valid. Validation runs before the
// service layer is ever invoked.
func ValidateRequest(obj any) map[string]string {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	fieldErrors := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		fieldErrors[jsonFieldName(fieldErr.Field())] = errorMessage(fieldErr)
	}
	return fieldErrors
}

func errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + err.Param() + " characters"
	case "max":
		return "Must be at most " + err.Param() + " characters"
	default:
		return "Invalid value"
	}
}

// jsonFieldName lowercases the leading rune so error keys match the JSON
// payload field names.
func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	runes := []rune(field)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
