// Package stats provides streaming moment accumulation for baseline profiles.
//
// The accumulator implements Welford's online algorithm so a profile can be
// folded over an arbitrarily long bucket series in constant memory. Variance
// is the population variance (divide by n), matching how profiles are scored:
// the bucket series is the whole population for the window, not a sample of it.
package stats

import "math"

// Welford accumulates count, mean, and M2 incrementally
type Welford struct {
	n    int64
	mean float64
	m2   float64
}

// Add folds one observation into the accumulator
func (w *Welford) Add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

// N returns the number of observations folded so far
func (w *Welford) N() int64 { return w.n }

// Mean returns the running mean, 0 when empty
func (w *Welford) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.mean
}

// Variance returns the population variance, 0 when empty
func (w *Welford) Variance() float64 {
	if w.n == 0 {
		return 0
	}
	v := w.m2 / float64(w.n)
	if v < 0 {
		// guard against FP cancellation producing a tiny negative
		return 0
	}
	return v
}

// StdDev returns the population standard deviation
func (w *Welford) StdDev() float64 { return math.Sqrt(w.Variance()) }

// Merge folds another accumulator into this one (Chan et al. parallel form)
func (w *Welford) Merge(o Welford) {
	if o.n == 0 {
		return
	}
	if w.n == 0 {
		*w = o
		return
	}
	n := w.n + o.n
	delta := o.mean - w.mean
	w.m2 += o.m2 + delta*delta*float64(w.n)*float64(o.n)/float64(n)
	w.mean += delta * float64(o.n) / float64(n)
	w.n = n
}

// ZScore computes (x - mean) / std with a small epsilon floor so a
// degenerate flat series cannot divide by zero
func ZScore(x, mean, std float64) float64 {
	const eps = 1e-9
	if std < eps {
		std = eps
	}
	return (x - mean) / std
}
