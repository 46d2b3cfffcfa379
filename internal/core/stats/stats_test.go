package stats

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestWelfordKnownSeries(t *testing.T) {
	var w Welford
	for _, x := range []float64{10, 12, 11, 9, 13} {
		w.Add(x)
	}
	if w.N() != 5 {
		t.Fatalf("n = %d, want 5", w.N())
	}
	if !approx(w.Mean(), 11.0, 1e-12) {
		t.Fatalf("mean = %v, want 11", w.Mean())
	}
	// population variance: sum of squared deviations / n = 10/5 = 2
	if !approx(w.Variance(), 2.0, 1e-12) {
		t.Fatalf("variance = %v, want 2", w.Variance())
	}
	if !approx(w.StdDev(), math.Sqrt2, 1e-12) {
		t.Fatalf("std = %v, want sqrt(2)", w.StdDev())
	}
	z := ZScore(20, w.Mean(), w.StdDev())
	if !approx(z, 9.0/math.Sqrt2, 1e-9) {
		t.Fatalf("z(20) = %v, want %v", z, 9.0/math.Sqrt2)
	}
}

func TestWelfordEmptyAndSingle(t *testing.T) {
	var w Welford
	if w.Mean() != 0 || w.Variance() != 0 || w.StdDev() != 0 {
		t.Fatalf("empty accumulator must report zeros")
	}
	w.Add(7)
	if w.Mean() != 7 || w.Variance() != 0 {
		t.Fatalf("single observation: mean=%v var=%v", w.Mean(), w.Variance())
	}
}

func TestWelfordMatchesTwoPass(t *testing.T) {
	series := []float64{3, 0, 0, 14, 2, 2, 9, 0, 1, 27, 4, 4}
	var w Welford
	var sum float64
	for _, x := range series {
		w.Add(x)
		sum += x
	}
	mean := sum / float64(len(series))
	var ss float64
	for _, x := range series {
		d := x - mean
		ss += d * d
	}
	if !approx(w.Mean(), mean, 1e-9) {
		t.Fatalf("mean = %v, want %v", w.Mean(), mean)
	}
	if !approx(w.Variance(), ss/float64(len(series)), 1e-9) {
		t.Fatalf("variance = %v, want %v", w.Variance(), ss/float64(len(series)))
	}
}

func TestWelfordMerge(t *testing.T) {
	series := []float64{5, 8, 8, 0, 0, 1, 13, 2}
	var whole, left, right Welford
	for i, x := range series {
		whole.Add(x)
		if i < len(series)/2 {
			left.Add(x)
		} else {
			right.Add(x)
		}
	}
	left.Merge(right)
	if left.N() != whole.N() {
		t.Fatalf("merged n = %d, want %d", left.N(), whole.N())
	}
	if !approx(left.Mean(), whole.Mean(), 1e-9) || !approx(left.Variance(), whole.Variance(), 1e-9) {
		t.Fatalf("merged mean/var = %v/%v, want %v/%v", left.Mean(), left.Variance(), whole.Mean(), whole.Variance())
	}
}

func TestZScoreEpsilonFloor(t *testing.T) {
	z := ZScore(5, 5, 0)
	if z != 0 {
		t.Fatalf("z over flat series at mean = %v, want 0", z)
	}
	if zp := ZScore(6, 5, 0); math.IsInf(zp, 0) || math.IsNaN(zp) {
		t.Fatalf("z over flat series must be finite, got %v", zp)
	}
}
