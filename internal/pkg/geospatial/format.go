package geospatial

import (
	"fmt"
	"math"
	"strconv"
)

// acreBands maps common fractional acreages to fraction-glyph labels.
// Each band matches within its tolerance; values outside every band
// fall back to decimal formatting.
var acreBands = []struct {
	acres float64
	tol   float64
	label string
}{
	{0.25, 0.03, "¼ acre"},
	{0.50, 0.03, "½ acre"},
	{0.75, 0.03, "¾ acre"},
	{1.00, 0.05, "1 acre"},
	{1.50, 0.05, "1½ acres"},
	{2.00, 0.05, "2 acres"},
	{2.50, 0.05, "2½ acres"},
	{3.00, 0.05, "3 acres"},
	{3.50, 0.05, "3½ acres"},
	{4.00, 0.05, "4 acres"},
	{4.50, 0.05, "4½ acres"},
	{5.00, 0.05, "5 acres"},
}

// FormatArea renders a square-foot value for display. NaN, infinite,
// and negative inputs render as "0 sq ft". At or above 2,000 sq ft an
// acreage qualifier is appended, using the banded fraction-glyph table.
func FormatArea(squareFeet float64) string {
	if math.IsNaN(squareFeet) || math.IsInf(squareFeet, 0) || squareFeet < 0 {
		squareFeet = 0
	}

	sqft := int(math.Round(squareFeet))
	if sqft < 2000 {
		return groupThousands(sqft) + " sq ft"
	}

	acres := squareFeet / SqFeetPerAcre
	return fmt.Sprintf("%s sq ft (%s)", groupThousands(sqft), formatAcres(acres))
}

func formatAcres(acres float64) string {
	for _, band := range acreBands {
		if math.Abs(acres-band.acres) <= band.tol {
			return band.label
		}
	}
	if acres < 5 {
		return fmt.Sprintf("%.2f acres", acres)
	}
	return fmt.Sprintf("%.1f acres", acres)
}

// groupThousands inserts comma separators into a non-negative integer.
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
