// Package validators adapts go-playground/validator to echo.
package validators

import (
	"strings"

	"github.com/anonto42/nano-midea/notifyfeed/internal/notifid"
	"github.com/go-playground/validator/v10"
)

// CustomValidator implements echo.Validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator with the notification_id tag registered.
func NewValidator() *CustomValidator {
	v := validator.New()
	if err := v.RegisterValidation("notification_id", validateNotificationID); err != nil {
		panic(err)
	}
	return &CustomValidator{validator: v}
}

// Validate validates a struct according to its `validate` tags.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func validateNotificationID(fl validator.FieldLevel) bool {
	return notifid.IsSupported(strings.TrimSpace(fl.Field().String()))
}
