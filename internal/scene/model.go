package scene

import (
	"time"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/kernel"
	"github.com/go-gpviz/gpviz/pkg/math/vector"
)

type Origin string

const (
	OriginUser   Origin = "USER"
	OriginRandom Origin = "RANDOM"
)

func NewObservation(x, y float64, origin Origin) Observation {
	return Observation{
		ID:        uuid.New(),
		X:         x,
		Y:         y,
		Origin:    origin,
		CreatedAt: time.Now(),
	}
}

// Observation is a single noisy point of a scene, placed by the user or
// generated.
type Observation struct {
	ID        uuid.UUID `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewSample(x, y vector.V) Sample {
	return Sample{
		ID:        uuid.New(),
		X:         x,
		Y:         y,
		CreatedAt: time.Now(),
	}
}

// Sample is one curve drawn from the posterior.
type Sample struct {
	ID        uuid.UUID `json:"id"`
	X         vector.V  `json:"x"`
	Y         vector.V  `json:"y"`
	CreatedAt time.Time `json:"createdAt"`
}

// Curve is a pointwise posterior over a grid, tagged with the kernel that
// produced it.
type Curve struct {
	Kernel   kernel.Type `json:"kernel"`
	X        vector.V    `json:"x"`
	Mean     vector.V    `json:"mean"`
	Variance vector.V    `json:"variance"`
}

// State is a copied snapshot of a scene, safe to hold after the call.
type State struct {
	ID           uuid.UUID     `json:"id"`
	Params       gp.Params     `json:"params"`
	Observations []Observation `json:"observations"`
	Samples      []Sample      `json:"samples"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Vectors splits the observation set into coordinate slices, the form the
// state digest is computed over.
func (s State) Vectors() (xs, ys []float64) {
	xs = make([]float64, len(s.Observations))
	ys = make([]float64, len(s.Observations))
	for i := range s.Observations {
		xs[i] = s.Observations[i].X
		ys[i] = s.Observations[i].Y
	}
	return xs, ys
}
