package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"rugsync/internal/logger"
	"rugsync/internal/models"
	"rugsync/internal/syncerr"
)

// Validator checks that a source product carries everything a create needs.
type Validator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func New(logger *logger.Logger) *Validator {
	v := validator.New()

	// compare prices as numbers so gt=0 works on decimals
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v, logger: logger}
}

// ValidateProduct returns a *syncerr.ValidationError naming every failing
// field, or nil.
func (v *Validator) ValidateProduct(p *models.SourceProduct) error {
	err := v.validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &syncerr.ValidationError{SKU: p.SKU, Fields: []string{err.Error()}}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}
	v.logger.Debug("Record %q failed validation: %v", p.SKU, fields)
	return &syncerr.ValidationError{SKU: p.SKU, Fields: fields}
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "gt":
		return field + " must be positive"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
