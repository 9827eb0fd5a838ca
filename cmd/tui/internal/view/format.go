package view

import (
	"context"
	"time"

	"github.com/MrJamesThe3rd/caja/internal/money"
)

const dbTimeout = 5 * time.Second

var formatter = money.NewFormatter(money.DefaultLocale)

// SetLocale switches the locale amounts are rendered in.
func SetLocale(tag string) {
	formatter = money.NewFormatter(tag)
}

// FormatAmount formats an amount stored as cents, e.g. "$ 1.234,50".
func FormatAmount(cents int64) string {
	return formatter.Currency(cents)
}

// FormatDate formats a time.Time into YYYY-MM-DD in local time.
func FormatDate(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// FormatTime formats a time.Time as local wall-clock HH:MM.
func FormatTime(t time.Time) string {
	return t.Local().Format("15:04")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
