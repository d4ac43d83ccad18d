package validation

import (
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo's Validator interface so
// handlers can call c.Validate(req) after binding.
type Validator struct {
	validate *validator.Validate
}

var (
	drcPhonePattern  = regexp.MustCompile(`^(\+243[1-9]\d{8}|0[1-9]\d{8})$`)
	intlPhonePattern = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)
)

// New builds a Validator with the custom tags the API uses.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("drc_phone", validateDRCPhone)
	_ = v.RegisterValidation("phone_number", validatePhoneNumber)
	_ = v.RegisterValidation("locale", validateLocale)
	return &Validator{validate: v}
}

// Validate implements echo.Validator. Validation failures surface as 400s
// with the validator's field-level message.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Struct validates without the echo error wrapping, for use outside handlers.
func (v *Validator) Struct(i interface{}) error {
	return v.validate.Struct(i)
}

// validateDRCPhone accepts Congolese numbers in either international
// (+243XXXXXXXXX) or local (0XXXXXXXXX) form.
func validateDRCPhone(fl validator.FieldLevel) bool {
	return drcPhonePattern.MatchString(fl.Field().String())
}

// validatePhoneNumber accepts any E.164-style international number, for
// doctor contact details that may sit outside the DRC.
func validatePhoneNumber(fl validator.FieldLevel) bool {
	return intlPhonePattern.MatchString(fl.Field().String())
}

func validateLocale(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "en" || value == "fr"
}
