package operation

import (
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the identifier and column type
// rules registered. Other packages reuse it for their own definitions.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
			return identPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("columntype", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() == reflect.Ptr {
				if field.IsNil() {
					return true
				}
				field = field.Elem()
			}
			_, err := ParseColumnType(field.String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// IsIdentifier reports whether name is a plain SQL identifier.
func IsIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Validate checks the structural fields of op.
func Validate(op Operation) error {
	if op == nil {
		return fmt.Errorf("nil operation")
	}
	if err := Validator().Struct(op); err != nil {
		return fmt.Errorf("invalid %s: %w", op.Kind(), err)
	}
	if ct, ok := op.(CreateTable); ok {
		seen := map[string]bool{}
		if !ct.WithoutID {
			seen["id"] = true
		}
		for _, c := range ct.AllColumns() {
			if seen[c.Name] {
				return fmt.Errorf("invalid %s: duplicate column %q in table %s", op.Kind(), c.Name, ct.Name)
			}
			seen[c.Name] = true
		}
	}
	return nil
}
