// Package validate holds the struct validator shared by the remote API clients.
package validate

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// Natural person fiscal code, omocodia substitutions included.
	fiscalCodeRegex = regexp.MustCompile(`^[A-Z]{6}[0-9LMNPQRSTUV]{2}[ABCDEHLMPRST][0-9LMNPQRSTUV]{2}[A-Z][0-9LMNPQRSTUV]{3}[A-Z]$`)
	// Organization fiscal code (partita IVA / codice fiscale ente).
	orgFiscalCodeRegex = regexp.MustCompile(`^[0-9]{11}$`)
)

func isFiscalCode(fl validator.FieldLevel) bool {
	return fiscalCodeRegex.MatchString(fl.Field().String())
}

func isOrgFiscalCode(fl validator.FieldLevel) bool {
	return orgFiscalCodeRegex.MatchString(fl.Field().String())
}

// RegisterCustomValidators registers the domain tags "fiscalcode" and "orgfiscalcode".
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("fiscalcode", isFiscalCode); err != nil {
		return err
	}
	return v.RegisterValidation("orgfiscalcode", isOrgFiscalCode)
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Default returns the process-wide validator with custom tags registered.
// validator.Validate caches struct metadata and is safe for concurrent use.
func Default() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		if err := RegisterCustomValidators(v); err != nil {
			panic(err)
		}
		instance = v
	})
	return instance
}

// Struct validates s with the default validator.
func Struct(s any) error {
	return Default().Struct(s)
}

// IsFiscalCode reports whether s is a well-formed natural person fiscal code.
func IsFiscalCode(s string) bool {
	return fiscalCodeRegex.MatchString(s)
}
