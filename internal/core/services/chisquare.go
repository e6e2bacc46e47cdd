package services

import "math"

// chiSquareCritical returns the critical value of the chi-square
// distribution with df degrees of freedom at the given significance level,
// i.e. the x where the CDF equals 1-significance. Inverted by bisection on
// the regularized lower incomplete gamma function.
func chiSquareCritical(df int, significance float64) float64 {
	if df < 1 {
		return 0
	}
	target := 1 - significance
	lo, hi := 0.0, float64(df)+100*math.Sqrt(float64(df))+100
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if chiSquareCDF(float64(df), mid) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func chiSquareCDF(df, x float64) float64 {
	if x <= 0 {
		return 0
	}
	return gammaIncP(df/2, x/2)
}

// gammaIncP is the regularized lower incomplete gamma function P(a, x),
// computed by series expansion for x < a+1 and by the continued fraction of
// Q(a, x) otherwise.
func gammaIncP(a, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x < a+1 {
		return gammaSeries(a, x)
	}
	return 1 - gammaContinuedFraction(a, x)
}

func gammaSeries(a, x float64) float64 {
	const maxIter = 500
	const eps = 1e-14

	lg, _ := math.Lgamma(a)
	ap := a
	sum := 1 / a
	del := sum
	for i := 0; i < maxIter; i++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*eps {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

func gammaContinuedFraction(a, x float64) float64 {
	const maxIter = 500
	const eps = 1e-14
	const tiny = 1e-300

	lg, _ := math.Lgamma(a)
	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= maxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lg) * h
}
