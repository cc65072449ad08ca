// Package currency formats money amounts for the user's profile currency.
package currency

import (
	"github.com/shopspring/decimal"
)

type position int

const (
	after position = iota
	before
)

type style struct {
	symbol   string
	name     string
	position position
	decimals int32
}

var currencies = map[string]style{
	"EUR":  {symbol: "€", name: "Euro", position: after, decimals: 2},
	"USD":  {symbol: "$", name: "Dollar américain", position: before, decimals: 2},
	"GBP":  {symbol: "£", name: "Livre sterling", position: before, decimals: 2},
	"CHF":  {symbol: "CHF", name: "Franc suisse", position: after, decimals: 2},
	"FCFA": {symbol: "FCFA", name: "Franc CFA", position: after, decimals: 0},
	"CAD":  {symbol: "CAD$", name: "Dollar canadien", position: before, decimals: 2},
	"JPY":  {symbol: "¥", name: "Yen japonais", position: before, decimals: 0},
}

// Supported lists the codes a profile may use, in display order.
var Supported = []string{"EUR", "USD", "GBP", "CHF", "FCFA", "CAD", "JPY"}

// IsSupported reports whether code is a known currency.
func IsSupported(code string) bool {
	_, ok := currencies[code]
	return ok
}

func lookup(code string) style {
	if s, ok := currencies[code]; ok {
		return s
	}
	return style{symbol: code, name: code, position: after, decimals: 2}
}

// Format renders amount with the currency's symbol, position and default
// decimals. Unknown codes are appended after the amount with 2 decimals.
func Format(amount float64, code string) string {
	s := lookup(code)
	return render(amount, code, s, s.decimals)
}

// FormatDecimals is Format with an explicit number of decimals.
func FormatDecimals(amount float64, code string, decimals int32) string {
	return render(amount, code, lookup(code), decimals)
}

// FormatWithSign prefixes non-negative amounts with "+".
func FormatWithSign(amount float64, code string) string {
	if amount >= 0 {
		return "+" + Format(amount, code)
	}
	return Format(amount, code)
}

func render(amount float64, code string, s style, decimals int32) string {
	v := decimal.NewFromFloat(amount).StringFixed(decimals)
	if s.position == before {
		return s.symbol + v
	}
	if code == "FCFA" {
		return v + " " + s.symbol
	}
	return v + s.symbol
}

// Symbol returns the display symbol, or the code itself when unknown.
func Symbol(code string) string {
	return lookup(code).symbol
}

// Name returns the French display name, or the code itself when unknown.
func Name(code string) string {
	return lookup(code).name
}
