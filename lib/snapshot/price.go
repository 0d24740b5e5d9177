package snapshot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"$":   "USD",
	"US$": "USD",
	"€":   "EUR",
	"£":   "GBP",
	"¥":   "JPY",
	"₹":   "INR",
	"R$":  "BRL",
	"C$":  "CAD",
	"A$":  "AUD",
}

// ISO 4217 codes recognised in price text, other three letter words
// ("NEW", "VAT") are not currencies
var currencyCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "INR": true,
	"BRL": true, "CAD": true, "AUD": true, "NZD": true, "CHF": true,
	"CNY": true, "HKD": true, "SGD": true, "KRW": true, "MXN": true,
	"COP": true, "ARS": true, "CLP": true, "PEN": true, "SEK": true,
	"NOK": true, "DKK": true, "PLN": true, "CZK": true, "HUF": true,
	"RON": true, "TRY": true, "ZAR": true, "AED": true, "SAR": true,
	"ILS": true, "THB": true,
}

var currencyCodeRegex = regexp.MustCompile(`\b([A-Z]{3})\b`)
var amountRegex = regexp.MustCompile(`-?\d[\d.,\s\x{00a0}\x{202f}']*`)

// ParsePrice reads a display price such as "$799.00", "799,00 €" or
// "USD 1,099.99". It returns the amount and the currency code found in
// the text, the code is empty when the text carries none. Percentages
// ("-10%") are skipped, and a minus sign only counts when it touches the
// amount or its currency symbol.
func ParsePrice(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, "", fmt.Errorf("empty price")
	}

	var match []int
	for _, candidate := range amountRegex.FindAllStringIndex(text, -1) {
		if !isPercentage(text, candidate) {
			match = candidate
			break
		}
	}
	if match == nil {
		return decimal.Zero, "", fmt.Errorf("no amount in %q", text)
	}
	raw := strings.TrimRight(text[match[0]:match[1]], " .,'\u00a0\u202f")
	rest := text[:match[0]] + " " + text[match[1]:]

	negative := strings.HasPrefix(raw, "-") || signedSymbol(text[:match[0]])
	raw = strings.TrimPrefix(raw, "-")

	amount, err := decimal.NewFromString(normalizeSeparators(raw))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("malformed amount %q: %w", raw, err)
	}
	if negative {
		amount = amount.Neg()
	}

	return amount, detectCurrency(rest), nil
}

// isPercentage reports whether the number at `match` is followed by a
// percent sign.
func isPercentage(text string, match []int) bool {
	after := strings.TrimLeft(text[match[1]:], " \u00a0\u202f")
	return strings.HasPrefix(after, "%")
}

// signedSymbol reports whether `prefix`, the text right before an
// amount, ends in a minus sign attached to a currency symbol ("-$").
func signedSymbol(prefix string) bool {
	prefix = strings.TrimRight(prefix, " \u00a0\u202f")
	// longest symbol so "-US$" is not read as "-US" + "$"
	best := ""
	for symbol := range currencySymbols {
		if strings.HasSuffix(prefix, symbol) && len(symbol) > len(best) {
			best = symbol
		}
	}
	if best == "" {
		return false
	}
	return strings.HasSuffix(strings.TrimSuffix(prefix, best), "-")
}

func detectCurrency(text string) string {
	for _, groups := range currencyCodeRegex.FindAllStringSubmatch(text, -1) {
		if currencyCodes[groups[1]] {
			return groups[1]
		}
	}
	// longer symbols first so "US$" wins over "$"
	best := ""
	for symbol := range currencySymbols {
		if strings.Contains(text, symbol) && len(symbol) > len(best) {
			best = symbol
		}
	}
	return currencySymbols[best]
}

// normalizeSeparators turns grouping/decimal separator conventions into
// a plain "1234.56" form.
func normalizeSeparators(raw string) string {
	raw = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, raw)

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.099,00
			raw = strings.ReplaceAll(raw, ".", "")
			return strings.Replace(raw, ",", ".", 1)
		}
		// 1,099.00
		return strings.ReplaceAll(raw, ",", "")
	case lastComma >= 0:
		if strings.Count(raw, ",") == 1 && len(raw)-lastComma-1 != 3 {
			// 799,00
			return strings.Replace(raw, ",", ".", 1)
		}
		// 1,099 or 1,099,000
		return strings.ReplaceAll(raw, ",", "")
	case strings.Count(raw, ".") > 1:
		// 1.099.000
		return strings.ReplaceAll(raw, ".", "")
	}
	return raw
}
