// Package schema validates form structs with go-playground/validator and reports
// every failing field at once as a formerrors.Failure.
//
// Field paths are built from the json tags of the form, so a failure for
// Form.Address.City is reported as "address.city" and slice elements as
// "items[0].name".
package schema

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/gobarber/internal/formerrors"
)

// Messages maps a "<path>.<tag>" or a bare "<tag>" key to a user-facing message.
// A "{param}" placeholder is replaced by the tag parameter, e.g. the 6 of min=6.
type Messages map[string]string

const genericMessage = "Campo inválido"

var defaultMessages = Messages{
	"required":      "Campo obrigatório",
	"notblank":      "Campo obrigatório",
	"required_with": "Campo obrigatório",
	"email":         "Digite um e-mail válido",
	"min":           "No mínimo {param} caracteres",
	"max":           "No máximo {param} caracteres",
	"eqfield":       "Confirmação incorreta",
}

// Schema validates values of one form type with its own set of messages.
type Schema struct {
	validate *validator.Validate
	messages Messages
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}

	return name
}

func validateNotBlank(fieldLevel validator.FieldLevel) bool {
	field := fieldLevel.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}

	return strings.TrimSpace(field.String()) != ""
}

// New returns a Schema that reports failures with messages.
func New(messages Messages) *Schema {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	// The tag name is a constant and the function is non-nil, so registration cannot fail.
	_ = validate.RegisterValidation("notblank", validateNotBlank)

	return &Schema{
		validate: validate,
		messages: messages,
	}
}

// Validate checks form and returns nil or a formerrors.Failure listing every
// invalid field in validation order. Any other error means form is not a struct
// and is a caller bug.
func (s *Schema) Validate(form any) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	failure := make(formerrors.Failure, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		path := fieldPath(fieldErr.Namespace())
		failure = append(failure, formerrors.FieldError{
			Path:    path,
			Message: s.message(path, fieldErr.Tag(), fieldErr.Param()),
		})
	}

	return failure
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return path
}

func (s *Schema) message(path, tag, param string) string {
	message, ok := s.messages[path+"."+tag]
	if !ok {
		message, ok = s.messages[tag]
	}
	if !ok {
		message, ok = defaultMessages[tag]
	}
	if !ok {
		return genericMessage
	}

	return strings.ReplaceAll(message, "{param}", param)
}
