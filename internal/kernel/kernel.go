// Package kernel provides the stationary covariance functions of the
// regression engine. All kernels are defined through the scaled distance
// r = |x - x'| / l with length scale l and signal variance s2, and satisfy
// k(x, x) = s2 exactly.
package kernel

import (
	"fmt"
	"math"
)

type Type string

const (
	TypeRBF      Type = "RBF"
	TypeMatern12 Type = "MATERN12"
	TypeMatern32 Type = "MATERN32"
	TypeMatern52 Type = "MATERN52"
)

// Fn is a covariance function over a pair of inputs.
type Fn func(x, x1 float64) float64

// Types lists every member of the closed kernel family.
func Types() []Type {
	return []Type{TypeRBF, TypeMatern12, TypeMatern32, TypeMatern52}
}

func (t Type) Valid() bool {
	switch t {
	case TypeRBF, TypeMatern12, TypeMatern32, TypeMatern52:
		return true
	default:
		return false
	}
}

// RBF returns the squared exponential kernel s2 * exp(-r^2/2).
func RBF(lengthScale, variance float64) Fn {
	return func(x, x1 float64) float64 {
		if x == x1 {
			return variance
		}
		r := (x - x1) / lengthScale
		return variance * math.Exp(-0.5*r*r)
	}
}

// Matern12 returns the Matern 1/2 kernel s2 * exp(-r), the exponential
// kernel producing rough non-differentiable curves.
func Matern12(lengthScale, variance float64) Fn {
	return func(x, x1 float64) float64 {
		if x == x1 {
			return variance
		}
		r := math.Abs(x-x1) / lengthScale
		return variance * math.Exp(-r)
	}
}

// Matern32 returns the Matern 3/2 kernel s2 * (1 + sqrt(3)*r) * exp(-sqrt(3)*r).
func Matern32(lengthScale, variance float64) Fn {
	lambda := math.Sqrt(3) / lengthScale
	return func(x, x1 float64) float64 {
		if x == x1 {
			return variance
		}
		d := lambda * math.Abs(x-x1)
		return variance * (1 + d) * math.Exp(-d)
	}
}

// Matern52 returns the Matern 5/2 kernel
// s2 * (1 + sqrt(5)*r + 5*r^2/3) * exp(-sqrt(5)*r).
func Matern52(lengthScale, variance float64) Fn {
	lambda := math.Sqrt(5) / lengthScale
	return func(x, x1 float64) float64 {
		if x == x1 {
			return variance
		}
		d := lambda * math.Abs(x-x1)
		return variance * (1 + d + d*d/3) * math.Exp(-d)
	}
}

// FuncFor resolves the covariance function for the kernel type. Extending
// the family means extending this switch.
func FuncFor(t Type, lengthScale, variance float64) (Fn, error) {
	switch t {
	case TypeRBF:
		return RBF(lengthScale, variance), nil
	case TypeMatern12:
		return Matern12(lengthScale, variance), nil
	case TypeMatern32:
		return Matern32(lengthScale, variance), nil
	case TypeMatern52:
		return Matern52(lengthScale, variance), nil
	default:
		return nil, fmt.Errorf("unknown kernel type: %s", t)
	}
}
