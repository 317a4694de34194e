// Package ui holds the terminal output helpers shared by the subcommands.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette — muted, dark-terminal friendly.
var (
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	WarnStyle    = lipgloss.NewStyle().Foreground(yellow)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)

func Success(s string) string { return SuccessStyle.Render(s) }
func Warn(s string) string    { return WarnStyle.Render(s) }
func Muted(s string) string   { return MutedStyle.Render(s) }
func Bold(s string) string    { return BoldStyle.Render(s) }

// SuccessMsg and ErrorMsg return single-line status messages.

func SuccessMsg(format string, a ...any) string {
	return SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func ErrorMsg(format string, a ...any) string {
	return ErrorStyle.Render("✗") + " " + fmt.Sprintf(format, a...)
}

// StepLine renders one apply step with its outcome, e.g.
// "  ✓ settings_config   changed".
func StepLine(name, outcome string, acted bool) string {
	mark := MutedStyle.Render("-")
	if acted {
		mark = SuccessStyle.Render("✓")
	}
	return fmt.Sprintf("  %s %-18s %s", mark, name, Muted(outcome))
}

// Pair is one key/value row for KeyValues.
type Pair struct {
	Key   string
	Value string
}

func KV(key, value string) Pair { return Pair{Key: key, Value: value} }

// KeyValues renders aligned key/value rows with the given indent.
func KeyValues(indent string, pairs ...Pair) string {
	width := 0
	for _, p := range pairs {
		if len(p.Key) > width {
			width = len(p.Key)
		}
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%-*s", width+2, p.Key+":")))
		b.WriteString(p.Value)
	}
	return b.String()
}

// Table renders rows with a muted header and no borders.
func Table(headers []string, rows [][]string) string {
	headerStyle := MutedStyle.Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}
