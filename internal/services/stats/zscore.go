package stats

// SurpriseZScore scales a release's actual-forecast surprise by the group's
// historical surprise std dev. The divisor bottoms out at 1 so thin history
// never inflates the score.
func SurpriseZScore(surprise, historicalStdDev float64) float64 {
	if historicalStdDev <= 0 {
		historicalStdDev = 1
	}
	return surprise / historicalStdDev
}
