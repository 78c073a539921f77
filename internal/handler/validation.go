package handler

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	routeDomain "github.com/waymark-maps/service-routes/internal/domain/route"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding rules used by request types:
// routecolor accepts a palette hex value or palette name.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		registerErr = v.RegisterValidation("routecolor", func(fl validator.FieldLevel) bool {
			_, err := routeDomain.ParseColor(fl.Field().String())
			return err == nil
		})
	})
	return registerErr
}

func mustRegisterValidators() {
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}
