package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"estate-marketplace-backend/internal/parse"
)

var registerOnce sync.Once

// customValidations are the binding tags the request structs rely on.
var customValidations = map[string]validator.Func{
	"calendarday": func(fl validator.FieldLevel) bool {
		_, err := parse.Day(fl.Field().String())
		return err == nil
	},
	"timeslot": func(fl validator.FieldLevel) bool {
		_, err := parse.Slot(fl.Field().String())
		return err == nil
	},
	"uuid_or_empty": func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		_, err := parse.ID(raw)
		return err == nil
	},
}

// registerValidators installs the custom binding tags on gin's validator.
// It panics when a tag cannot be installed.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("api: unexpected binding engine %T", binding.Validator.Engine()))
		}
		for tag, fn := range customValidations {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(fmt.Sprintf("api: register %q validation: %v", tag, err))
			}
		}
	})
}
