package view

import (
	"context"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

const dbTimeout = 5 * time.Second

var amountPrinter = message.NewPrinter(language.Indonesian)

// FormatAmount formats an amount in the smallest currency unit with
// thousands grouping, e.g. 1.250.000.
func FormatAmount(amount int64) string {
	return amountPrinter.Sprintf("%d", amount)
}

// FormatDateTime formats a time.Time into YYYY-MM-DD HH:MM in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

var statusColors = map[purchase.Status]lipgloss.Color{
	purchase.StatusActive:    lipgloss.Color("214"),
	purchase.StatusPaid:      lipgloss.Color("42"),
	purchase.StatusCancelled: lipgloss.Color("245"),
}

// StatusBadge renders a purchase status in its colour.
func StatusBadge(s purchase.Status) string {
	return lipgloss.NewStyle().Foreground(statusColors[s]).Render(string(s))
}
