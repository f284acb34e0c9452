// Package mailer delivers participant notifications. Delivery is
// best-effort by contract: senders return an error for the caller to log,
// and a failed send for one recipient never affects the others.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
)

// Email is one outbound message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single email. Implementations must not panic; all
// failures are reported through the returned error.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// LogSender is a Sender that only logs the message. Used when SMTP is not
// configured, so the rest of the system behaves identically in
// development.
type LogSender struct{}

// Send logs the email instead of delivering it.
func (LogSender) Send(_ context.Context, email Email) error {
	slog.Info("email suppressed (no SMTP configured)",
		"to", email.To,
		"subject", email.Subject,
	)
	return nil
}

// currencySymbols maps the supported currency codes to display symbols.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"NGN": "₦",
	"CAD": "CA$",
	"AUD": "A$",
	"INR": "₹",
	"JPY": "¥",
	"CNY": "CN¥",
}

// FormatAmount renders a monetary amount with its currency symbol,
// falling back to the bare code for unknown currencies.
func FormatAmount(amount float64, currency string) string {
	if symbol, ok := currencySymbols[currency]; ok {
		return fmt.Sprintf("%s%.2f", symbol, amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}
