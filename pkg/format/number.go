// Package format renders indicator values for display.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Percent returns a percentage with one decimal place (e.g., "49.0%").
// NaN renders as "n/a".
func Percent(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return printer.Sprintf("%.1f%%", value)
}

// Millions returns a value already expressed in millions (e.g., "139.5 million").
func Millions(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return printer.Sprintf("%.1f million", value)
}

// Number returns a value with thousands separators and the given precision
// (e.g., "139,500,000").
func Number(value float64, precision int) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	if precision < 0 {
		precision = 0
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", precision), value)
}
