package exporter

import (
	"fmt"
)

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

// formatRate formats a mortality rate with four decimal places, enough to
// tell 0.1% steps apart without suggesting spurious precision.
func formatRate(f float64) string {
	return fmt.Sprintf("%.4f", f)
}
