package reaction

import "strings"

// PipSize returns the minimum meaningful price increment for a pair.
// JPY-quoted pairs tick in hundredths; everything else in ten-thousandths.
func PipSize(pair string) float64 {
	if strings.HasSuffix(strings.ToUpper(pair), "JPY") {
		return 0.01
	}
	return 0.0001
}
