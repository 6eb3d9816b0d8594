// Package currencypkg provides common currency related functionality for apps.
package currencypkg

// Constants for all supported currencies.
const (
	USD = "USD"
	EUR = "EUR"
	RMB = "RMB"
	BRL = "BRL"
	JPY = "JPY"
)

// SupportedCurrencies holds all the supported currencies.
var SupportedCurrencies = []string{
	USD,
	EUR,
	RMB,
	BRL,
	JPY,
}

// fractionDigits holds the number of minor unit digits of every supported currency.
var fractionDigits = map[string]int32{
	USD: 2,
	EUR: 2,
	RMB: 2,
	BRL: 2,
	JPY: 0,
}

// IsSupportedCurrency returns true if the currncy is supported.
func IsSupportedCurrency(currency string) bool {
	_, ok := fractionDigits[currency]
	return ok
}

// FractionDigits returns the number of minor unit digits for the currency.
func FractionDigits(currency string) (int32, bool) {
	d, ok := fractionDigits[currency]
	return d, ok
}
