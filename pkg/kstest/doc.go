// Package kstest implements the two-sample Kolmogorov-Smirnov test.
//
// The statistic D is the largest distance between the two empirical
// distribution functions, computed with gonum's stat.KolmogorovSmirnov.
// The two-sided p-value is:
//
//   - Exact: the Smirnov lattice-path recursion, used when m*n <= ExactLimit
//     and the pooled sample has no ties
//   - Asymptotic: the Kolmogorov limiting distribution with the
//     Stephens small-sample correction, otherwise
//
// Usage:
//
//	res, err := kstest.TwoSample(baseline, live)
//	if err != nil {
//	    return err
//	}
//	if res.PValue < 0.05 {
//	    // distributions differ
//	}
package kstest
