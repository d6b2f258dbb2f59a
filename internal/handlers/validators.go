package handlers

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// The validator cannot introspect decimal.Decimal, so amounts are surfaced as
// float64 for tag evaluation. Precision loss here only affects validation,
// never the stored value.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(decimalAsFloat, decimal.Decimal{})
	}
}

func decimalAsFloat(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}
