package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/lifelink/donor-api/internal/model"
)

// RegisterCustom installs the blood-type rule on gin's binding engine.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("bloodtype", validBloodType)
}

func validBloodType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, bt := range model.BloodTypes {
		if value == bt {
			return true
		}
	}
	return false
}
