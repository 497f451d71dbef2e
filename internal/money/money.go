package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimal = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func exponent(currency string) int32 {
	if zeroDecimal[NormalizeCurrency(currency)] {
		return 0
	}
	return 2
}

// ToMinor converts a whole-unit amount into the provider's minor unit.
func ToMinor(amount int64, currency string) int64 {
	if exponent(currency) == 0 {
		return amount
	}
	return amount * 100
}

func FromMinor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -exponent(currency))
}

// Format renders a minor-unit amount as "999.00 INR".
func Format(minor int64, currency string) string {
	exp := exponent(currency)
	return FromMinor(minor, currency).StringFixed(exp) + " " + NormalizeCurrency(currency)
}
