// Package money converts between the integer cents the ledger stores and the
// amounts operators type and read.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Parse reads an operator-typed amount into cents. A comma marks the decimal
// separator ("1.234,56"); without one, a dot does ("1234.56"). More than two
// decimal places is rejected rather than rounded.
func Parse(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, " ", "")

	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	if clean == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

// Decimal returns cents as a two-place decimal string with a dot separator.
func Decimal(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Formatter renders cents for a locale.
type Formatter struct {
	p       *message.Printer
	decimal string
}

// DefaultLocale is the register's home locale.
const DefaultLocale = "es-AR"

// NewFormatter returns a formatter for the BCP 47 tag, falling back to
// DefaultLocale when the tag does not parse.
func NewFormatter(tag string) *Formatter {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.MustParse(DefaultLocale)
	}

	p := message.NewPrinter(lang)

	// The locale's decimal separator sits between the digits of a fixed 0.5.
	sep := strings.Trim(p.Sprint(number.Decimal(0.5, number.Scale(1))), "05")

	return &Formatter{p: p, decimal: sep}
}

// Format renders cents with grouping and two decimals, e.g. 12345678 -> "123.456,78".
// The printer only groups the whole part; the amount never leaves decimal.
func (f *Formatter) Format(cents int64) string {
	d := decimal.New(cents, -2)
	whole := d.Truncate(0)
	frac := d.Sub(whole).Abs().Shift(2).IntPart()

	sign := ""
	if d.IsNegative() && whole.IsZero() {
		sign = "-"
	}

	return fmt.Sprintf("%s%s%s%02d", sign, f.p.Sprint(number.Decimal(whole.IntPart())), f.decimal, frac)
}

// Currency is Format prefixed with the peso sign.
func (f *Formatter) Currency(cents int64) string {
	if cents < 0 {
		return "-$ " + f.Format(-cents)
	}

	return "$ " + f.Format(cents)
}

var defaultFormatter = NewFormatter(DefaultLocale)

// Format renders cents in DefaultLocale.
func Format(cents int64) string {
	return defaultFormatter.Format(cents)
}
