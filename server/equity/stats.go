package equity

import "math"

// WilsonCI95 bounds a Bernoulli share p observed over n trials. Split pots
// count as fractional wins, so p may be any value in [0, 1].
func WilsonCI95(p float64, n int64) (low, hi float64) {
	if n <= 0 {
		return 0, 1
	}
	z := 1.96
	fn := float64(n)
	den := 1 + (z*z)/fn
	center := p + (z*z)/(2*fn)
	half := z * math.Sqrt((p*(1-p))/fn+(z*z)/(4*fn*fn))
	low, hi = (center-half)/den, (center+half)/den
	return math.Max(0, low), math.Min(1, hi)
}
