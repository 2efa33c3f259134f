package engine

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// OriginalFormatter renders shop-currency amounts, e.g. "$ 19.99".
type OriginalFormatter struct {
	printer *message.Printer
}

// NewOriginalFormatter creates a formatter for the given BCP 47 locale tag.
// Unknown tags fall back to English.
func NewOriginalFormatter(locale string) *OriginalFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &OriginalFormatter{printer: message.NewPrinter(tag)}
}

// Format renders amount in the ISO 4217 currency code. Unknown codes are
// rendered as "19.99 XYZ".
func (o *OriginalFormatter) Format(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(2) + " " + code
	}
	f, _ := amount.Float64()
	return o.printer.Sprint(currency.Symbol(unit.Amount(f)))
}
