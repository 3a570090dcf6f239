// Package validate registers the custom binding rules and formats
// validation failures for API responses.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/noticias/core/internal/models"
)

var slugRe = regexp.MustCompile(`^[a-z0-9áéíóúüñ]+(?:-[a-z0-9áéíóúüñ]+)*$`)

var once sync.Once

// Register adds the custom rules to v.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) <= 160 && slugRe.MatchString(s)
	}); err != nil {
		return err
	}
	return v.RegisterValidation("bulletin_type", func(fl validator.FieldLevel) bool {
		_, err := models.ParseBulletinType(fl.Field().String())
		return err == nil
	})
}

// Gin installs the custom rules on gin's default validator. Safe to call
// more than once.
func Gin() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := Register(v); err != nil {
				panic(fmt.Sprintf("register validators: %v", err))
			}
		}
	})
}

// Message turns a binding error into a readable message.
func Message(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Solicitud inválida"
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("campo '%s' no cumple '%s'", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
