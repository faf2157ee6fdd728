// Package textutil formats numbers for console reporting. Read and base
// counts routinely reach nine digits, so every user-facing count goes
// through Count to pick up digit grouping.
package textutil

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Count renders n with digit grouping, e.g. 1234567 as "1,234,567".
func Count[T int | int64 | uint64](n T) string {
	return printer.Sprintf("%d", int64(n))
}

// Percent renders the ratio part/whole as a percentage with two decimals.
// A zero whole renders as "0.00%".
func Percent(part, whole int64) string {
	if whole == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(whole)*100)
}
