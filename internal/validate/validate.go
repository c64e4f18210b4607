// Package validate wraps a shared validator instance for mutation inputs.
package validate

import (
	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s against its field tags.
func Struct(s any) error {
	return v.Struct(s)
}
