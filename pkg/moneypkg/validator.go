package moneypkg

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidAmount validates that the field is a decimal string greater than zero.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}

	return d.IsPositive()
}

// ValidBalance validates that the field is a decimal string not less than zero.
var ValidBalance validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}

	return !d.IsNegative()
}
