// Package money formats amounts for quotes and reports.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"BRL": "R$ ",
	"USD": "$",
	"EUR": "€",
}

type separators struct {
	thousands string
	decimal   string
}

func separatorsFor(locale string) separators {
	if strings.HasPrefix(strings.ToLower(locale), "pt") {
		return separators{thousands: ".", decimal: ","}
	}
	return separators{thousands: ",", decimal: "."}
}

// Round rounds an amount to cents, half away from zero.
func Round(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// Format renders amount in currency using the separators of locale, for
// example "R$ 1.234,56" or "$1,234.56". Unknown currencies are prefixed by
// their code.
func Format(amount float64, currency, locale string) string {
	symbol, ok := symbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency) + " "
	}

	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + symbol + number(d.Abs(), 2, separatorsFor(locale))
}

// Percent renders a ratio as a percentage with two decimals, so 0.2857
// becomes "28,57%" in pt-BR.
func Percent(ratio float64, locale string) string {
	d := decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + number(d.Abs(), 2, separatorsFor(locale)) + "%"
}

func number(d decimal.Decimal, places int32, sep separators) string {
	fixed := d.StringFixed(places)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(sep.thousands)
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteString(sep.decimal)
		b.WriteString(fracPart)
	}
	return b.String()
}
