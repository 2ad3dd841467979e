package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Validator is a wrapper around the validator library with the custom tags
// used by listings and configuration.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance. Field names in errors follow the
// yaml tag, falling back to json, so messages match the config file.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"yaml", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("sort_strategy", func(fl validator.FieldLevel) bool {
		s := models.SortStrategy(fl.Field().String())
		return s == "" || s.Valid()
	})
	_ = v.RegisterValidation("source", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseSource(fl.Field().String())
		return ok
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("validation failed: %w", err)
}

// ValidateListing checks the fields every adapter must populate.
func (v *Validator) ValidateListing(l models.Listing) error {
	if err := v.ValidateStruct(l); err != nil {
		return fmt.Errorf("listing %s: %w", l.Key(), err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.SplitN(fe.Namespace(), ".", 2)
	name := fe.Namespace()
	if len(field) == 2 {
		name = field[1]
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s (got %v)", name, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s must satisfy %s (got %v)", name, fe.Tag(), fe.Value())
}
