// Package currency provides standardized currency handling across the application.
// All monetary amounts are stored as decimal.Decimal to avoid floating-point errors.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents an ISO 4217 currency code.
type Currency string

// Supported currencies. Tender notices and subscription plans are
// priced in Algerian dinars; foreign-funded tenders occasionally quote
// dollars or euros.
const (
	DZD Currency = "DZD" // Algerian Dinar
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
)

// DefaultCurrency is the default currency when none is specified.
const DefaultCurrency = DZD

// CurrencyInfo contains metadata about a currency.
type CurrencyInfo struct {
	Code          Currency
	Name          string
	Symbol        string
	DecimalPlaces int  // Number of decimal places (e.g., 2 for DZD)
	SymbolBefore  bool // Whether symbol appears before amount
}

// currencies maps currency codes to their info.
var currencies = map[Currency]CurrencyInfo{
	DZD: {Code: DZD, Name: "Algerian Dinar", Symbol: "DA", DecimalPlaces: 2, SymbolBefore: false},
	USD: {Code: USD, Name: "US Dollar", Symbol: "$", DecimalPlaces: 2, SymbolBefore: true},
	EUR: {Code: EUR, Name: "Euro", Symbol: "€", DecimalPlaces: 2, SymbolBefore: false},
}

// IsValid checks if a currency code is supported.
func IsValid(code string) bool {
	_, ok := currencies[Currency(code)]
	return ok
}

// GetInfo returns metadata for a currency code.
func GetInfo(code Currency) (CurrencyInfo, bool) {
	info, ok := currencies[code]
	return info, ok
}

// Money represents a monetary amount with currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney creates a new Money value.
func NewMoney(amount decimal.Decimal, curr Currency) Money {
	if curr == "" {
		curr = DefaultCurrency
	}
	return Money{Amount: amount, Currency: curr}
}

// NewMoneyFromString creates a Money from a string value.
func NewMoneyFromString(amount string, curr Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount: %w", err)
	}
	return NewMoney(d, curr), nil
}

// Zero returns a zero amount in the specified currency.
func Zero(curr Currency) Money {
	return NewMoney(decimal.Zero, curr)
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsPositive returns true if the amount is positive.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Round rounds the amount to the currency's decimal places.
func (m Money) Round() Money {
	info, ok := GetInfo(m.Currency)
	if !ok {
		info = currencies[DefaultCurrency]
	}
	return NewMoney(m.Amount.Round(int32(info.DecimalPlaces)), m.Currency)
}

// Format returns a formatted string representation with thousands
// grouping, e.g. "1 500,00 DA" for dinars.
func (m Money) Format() string {
	info, ok := GetInfo(m.Currency)
	if !ok {
		return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
	}

	fixed := m.Amount.Round(int32(info.DecimalPlaces)).StringFixed(int32(info.DecimalPlaces))
	formatted := groupThousands(fixed)

	if info.SymbolBefore {
		return info.Symbol + formatted
	}
	return formatted + " " + info.Symbol
}

// String returns the amount as a plain string.
func (m Money) String() string {
	info, ok := GetInfo(m.Currency)
	if !ok {
		return m.Amount.String()
	}
	return m.Amount.Round(int32(info.DecimalPlaces)).String()
}

// groupThousands inserts space separators into the integer part of a
// fixed decimal string and swaps the decimal point for a comma, the
// convention on Algerian notices.
func groupThousands(fixed string) string {
	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}

	out := sign + b.String()
	if fracPart != "" {
		out += "," + fracPart
	}
	return out
}
