package store

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	LocalePortuguese = "pt-BR"
	LocaleEnglish    = "en-US"

	CurrencyBRL = "BRL"
	CurrencyUSD = "USD"
)

// NormalizeLocale returns the canonical form of a BCP 47 tag. A bare "pt"
// or "en" gets the default region of the app (pt-BR, en-US); empty or
// unparseable input becomes en-US.
func NormalizeLocale(tag string) string {
	parsed, ok := parseLocale(tag)
	if !ok {
		return LocaleEnglish
	}
	base, _ := parsed.Base()
	if _, conf := parsed.Region(); conf != language.Exact {
		switch base.String() {
		case "pt":
			return LocalePortuguese
		case "en":
			return LocaleEnglish
		}
	}
	return parsed.String()
}

// IsPortuguese reports whether locale is any Portuguese variant.
func IsPortuguese(locale string) bool {
	parsed, ok := parseLocale(locale)
	if !ok {
		return false
	}
	base, _ := parsed.Base()
	return base.String() == "pt"
}

// CurrencyForLocale derives the default currency of a locale from its
// language: BRL for Portuguese, USD for everything else.
func CurrencyForLocale(locale string) string {
	if IsPortuguese(locale) {
		return CurrencyBRL
	}
	return CurrencyUSD
}

func parseLocale(tag string) (language.Tag, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return language.Und, false
	}
	parsed, err := language.Parse(tag)
	if err != nil || parsed == language.Und {
		return language.Und, false
	}
	return parsed, true
}
