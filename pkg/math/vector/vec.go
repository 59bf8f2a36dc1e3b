package vector

import (
	"math"
)

type V []float64

// Zeros returns a vector of the given size with all points set to zero.
func Zeros(n int) V {
	return make(V, n)
}

// Linspace returns n evenly spaced points between start and end, both
// endpoints included. With n == 1 the result is [start]. n < 1 is a
// programming error.
func Linspace(start, end float64, n int) V {
	if n < 1 {
		panic("vector: linspace size must be >= 1")
	}
	v := make(V, n)
	if n == 1 {
		v[0] = start
		return v
	}
	step := (end - start) / float64(n-1)
	for i := 0; i < n; i++ {
		v[i] = start + float64(i)*step
	}
	v[n-1] = end
	return v
}

func (v V) Fill(value float64) {
	for i := range v {
		v[i] = value
	}
}

func (v V) Apply(applyFn func(float64) float64) {
	for i := range v {
		v[i] = applyFn(v[i])
	}
}

// Dot returns the inner product of two vectors of equal size.
func (v V) Dot(vec V) float64 {
	if len(v) != len(vec) {
		panic("vector: dot product size mismatch")
	}
	var s float64
	for i := range v {
		s += v[i] * vec[i]
	}
	return s
}

// Add sums the vectors point by point into a new vector.
func (v V) Add(vec V) V {
	if len(v) != len(vec) {
		panic("vector: add size mismatch")
	}
	var v1 = make(V, len(v))
	for i := range v {
		v1[i] = v[i] + vec[i]
	}
	return v1
}

func (v V) Sum() float64 {
	var s float64
	for i := range v {
		s += v[i]
	}
	return s
}

func (v V) Equal(vec V) bool {
	if len(v) != len(vec) {
		return false
	}
	for i, value := range v {
		if vec[i] != value {
			return false
		}
	}
	return true
}

func (v V) Max() float64 {
	var max = -math.MaxFloat64
	for i := range v {
		if v[i] > max {
			max = v[i]
		}
	}
	return max
}

func (v V) Min() float64 {
	var min = math.MaxFloat64
	for i := range v {
		if v[i] < min {
			min = v[i]
		}
	}
	return min
}

func (v V) Mean() float64 {
	return v.Sum() / float64(len(v))
}
