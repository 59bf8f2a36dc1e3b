// Package randn draws standard normal variates from an injectable uniform
// source via the Box-Muller transform.
package randn

import (
	"math"

	"github.com/valyala/fastrand"

	"github.com/go-gpviz/gpviz/pkg/math/vector"
)

// Source yields uniform values in [0, 1). Implementations must be safe for
// concurrent use if the consumer is shared between goroutines.
type Source interface {
	Float64() float64
}

var _ Source = (*FastSource)(nil)

// FastSource is the default Source backed by fastrand.
type FastSource struct{}

func (FastSource) Float64() float64 {
	return float64(fastrand.Uint32()) / (1 << 32)
}

// Normal transforms uniform draws into standard normal draws. It keeps no
// state besides the source, so a Normal shared between goroutines is safe
// whenever its source is.
type Normal struct {
	src Source
}

func New(src Source) *Normal {
	if src == nil {
		src = FastSource{}
	}
	return &Normal{src: src}
}

// Draw returns one standard normal variate.
func (n *Normal) Draw() float64 {
	// u1 is moved into (0, 1] to keep the logarithm finite
	u1 := 1 - n.src.Float64()
	u2 := n.src.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Fill overwrites every point of v with an independent draw.
func (n *Normal) Fill(v vector.V) {
	for i := range v {
		v[i] = n.Draw()
	}
}

// Uniform returns one draw from the underlying source, uniform in [a, b).
func (n *Normal) Uniform(a, b float64) float64 {
	return a + (b-a)*n.src.Float64()
}
