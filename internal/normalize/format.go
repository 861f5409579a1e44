package normalize

import (
	"fmt"
	"math"
)

// DimDivisor is the volumetric divisor for centimetres and kilograms.
const DimDivisor = 5000

// CompactDate rewrites YYYYMMDD as YYYY-MM-DD. Anything else yields fallback.
func CompactDate(s, fallback string) string {
	if len(s) != 8 || !allDigits(s) {
		return fallback
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
}

// CompactTime rewrites HHMMSS as HH:MM:SS. Anything else yields fallback.
func CompactTime(s, fallback string) string {
	if len(s) != 6 || !allDigits(s) {
		return fallback
	}
	return s[0:2] + ":" + s[2:4] + ":" + s[4:6]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DimWeight computes length × width × height / DimDivisor.
func DimWeight(length, width, height float64) float64 {
	return length * width * height / DimDivisor
}

// DisplayDimWeight formats a dimensional weight with two decimals.
func DisplayDimWeight(w float64) string {
	return fmt.Sprintf("%.2f", w)
}

// ExportDimWeight applies the export rounding: below 20 the weight is rounded
// to the nearest 0.5 with one decimal, otherwise to the nearest whole number.
func ExportDimWeight(w float64) string {
	if w < 20 {
		return fmt.Sprintf("%.1f", math.Round(w*2)/2)
	}
	return fmt.Sprintf("%.0f", math.Round(w))
}
