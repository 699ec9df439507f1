package kstest

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ExactLimit is the largest m*n for which the exact p-value is computed.
const ExactLimit = 10000

// Method names how the p-value was obtained.
type Method string

const (
	MethodExact      Method = "exact"
	MethodAsymptotic Method = "asymptotic"
)

// Common errors
var (
	ErrEmptySample = errors.New("kstest: sample is empty")
	ErrNaN         = errors.New("kstest: sample contains NaN")
)

// Result is the outcome of a two-sample test.
type Result struct {
	Statistic float64
	PValue    float64
	Method    Method
}

// TwoSample tests the null hypothesis that x and y are drawn from the same
// continuous distribution. The inputs are not modified.
func TwoSample(x, y []float64) (Result, error) {
	if len(x) == 0 || len(y) == 0 {
		return Result{}, ErrEmptySample
	}

	xs, err := sortedCopy(x)
	if err != nil {
		return Result{}, err
	}
	ys, err := sortedCopy(y)
	if err != nil {
		return Result{}, err
	}

	d := stat.KolmogorovSmirnov(xs, nil, ys, nil)
	m, n := len(xs), len(ys)

	if m*n <= ExactLimit && !hasTies(xs, ys) {
		return Result{Statistic: d, PValue: clamp01(1 - smirnovCDF(d, m, n)), Method: MethodExact}, nil
	}

	ne := float64(m) * float64(n) / float64(m+n)
	en := math.Sqrt(ne)
	p := kolmogorovSurvival((en + 0.12 + 0.11/en) * d)
	return Result{Statistic: d, PValue: clamp01(p), Method: MethodAsymptotic}, nil
}

func sortedCopy(v []float64) ([]float64, error) {
	out := make([]float64, len(v))
	for i, f := range v {
		if math.IsNaN(f) {
			return nil, ErrNaN
		}
		out[i] = f
	}
	sort.Float64s(out)
	return out, nil
}

// hasTies reports whether the pooled sorted samples repeat a value.
func hasTies(xs, ys []float64) bool {
	i, j := 0, 0
	prev, havePrev := 0.0, false
	for i < len(xs) || j < len(ys) {
		var v float64
		if j >= len(ys) || (i < len(xs) && xs[i] <= ys[j]) {
			v = xs[i]
			i++
		} else {
			v = ys[j]
			j++
		}
		if havePrev && v == prev {
			return true
		}
		prev, havePrev = v, true
	}
	return false
}

// smirnovCDF returns P(D < d) for samples of size m and n with no ties,
// counting the monotone lattice paths from (0,0) to (m,n) that stay within
// distance d of the diagonal. Probabilities are accumulated incrementally
// so no binomial coefficient is formed.
func smirnovCDF(d float64, m, n int) float64 {
	if m > n {
		m, n = n, m
	}
	md, nd := float64(m), float64(n)
	// d is a multiple of 1/lcm(m,n); nudge below it so the comparison
	// below is strict without floating point noise.
	q := (0.5 + math.Floor(d*md*nd-1e-7)) / (md * nd)

	u := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		if float64(j)/nd > q {
			u[j] = 0
		} else {
			u[j] = 1
		}
	}
	for i := 1; i <= m; i++ {
		w := float64(i) / float64(i+n)
		if float64(i)/md > q {
			u[0] = 0
		} else {
			u[0] = w * u[0]
		}
		for j := 1; j <= n; j++ {
			if math.Abs(float64(i)/md-float64(j)/nd) > q {
				u[j] = 0
			} else {
				u[j] = w*u[j] + u[j-1]
			}
		}
	}
	return u[n]
}

// kolmogorovSurvival is Q(lambda) = 2 * sum_{j>=1} (-1)^(j-1) exp(-2 j^2 lambda^2).
// The series does not converge for small lambda, where Q is 1.
func kolmogorovSurvival(lambda float64) float64 {
	const (
		eps1 = 0.001
		eps2 = 1.0e-8
	)

	a2 := -2.0 * lambda * lambda
	fac := 2.0
	sum := 0.0
	termbf := 0.0
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j)*float64(j))
		sum += term
		if math.Abs(term) <= eps1*termbf || math.Abs(term) <= eps2*sum {
			return sum
		}
		fac = -fac
		termbf = math.Abs(term)
	}
	return 1.0
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
