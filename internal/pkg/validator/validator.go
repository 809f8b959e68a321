package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Role validation
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		validRoles := []string{"backer", "admin", "system"}
		for _, r := range validRoles {
			if role == r {
				return true
			}
		}
		return false
	})

	// Reward action slug validation (lowercase snake_case)
	validate.RegisterValidation("action_slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})

	// Referral code validation: 6-16 alphanumeric characters
	validate.RegisterValidation("referral_code", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if len(code) < 6 || len(code) > 16 {
			return false
		}
		for _, c := range code {
			if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
				return false
			}
		}
		return true
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "uuid":
			errors[field] = "Must be a valid UUID"
		case "gt":
			errors[field] = "Must be greater than " + err.Param()
		case "gte":
			errors[field] = "Must be at least " + err.Param()
		case "role":
			errors[field] = "Invalid role"
		case "action_slug":
			errors[field] = "Invalid action slug"
		case "referral_code":
			errors[field] = "Invalid referral code"
		case "max":
			errors[field] = "Must not exceed " + err.Param()
		default:
			errors[field] = "Invalid value"
		}
	}
	return errors
}
