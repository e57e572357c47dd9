package stats

import "gonum.org/v1/gonum/stat/distuv"

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	alpha := 1 - confidenceInterval/100.0
	return dist.Quantile(1 - alpha/2)
}

// Z99 is the z-value for a 99% confidence interval.
var Z99 = ZVal(99)
