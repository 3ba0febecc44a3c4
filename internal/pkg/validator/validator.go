package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

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
	// ISO-ish currency code: 3-5 upper-case letters (covers fiat and crypto tickers)
	validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if len(code) < 3 || len(code) > 5 {
			return false
		}
		for _, r := range code {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		return true
	})

	// Transaction type validation
	validate.RegisterValidation("txtype", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		validTypes := []string{"deposit", "ad_payment", "subscription_payment", "swap", "withdrawal", ""}
		for _, v := range validTypes {
			if t == v {
				return true
			}
		}
		return false
	})
}

// Struct validates a struct and returns field error map
func Struct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["_"] = err.Error()
		return errs
	}
	for _, fe := range validationErrors {
		errs[fe.Field()] = messageForTag(fe)
	}
	return errs
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "currency":
		return "must be an upper-case currency code"
	case "txtype":
		return "unknown transaction type"
	default:
		return "failed validation on " + fe.Tag()
	}
}
