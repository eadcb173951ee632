// AngelaMos | 2026
// validation.go

package entitlement

import (
	"github.com/go-playground/validator/v10"
)

// RegisterValidations adds the packagetype tag to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("packagetype", func(fl validator.FieldLevel) bool {
		return PackageType(fl.Field().String()).IsValid()
	})
}

// NewValidator returns a validator with the domain tags registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic("entitlement: register validations: " + err.Error())
	}
	return v
}
