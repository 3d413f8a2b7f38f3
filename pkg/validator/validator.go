package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

// Module/option keys: lowercase slug, dots and underscores allowed after the
// first character. Role names: uppercase slug.
var (
	moduleKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9._]*$`)
	roleNamePattern  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

func init() {
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})

	validate.RegisterValidation("module_key", func(fl validator.FieldLevel) bool {
		return moduleKeyPattern.MatchString(fl.Field().String())
	})

	validate.RegisterValidation("role_name", func(fl validator.FieldLevel) bool {
		return roleNamePattern.MatchString(fl.Field().String())
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}
