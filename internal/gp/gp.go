// Package gp implements exact Gaussian process regression for 1-D inputs:
// posterior mean and variance over a test grid and posterior curve
// sampling. Every call recomputes the factorization from the observation
// set it is given; nothing is cached between calls.
package gp

import (
	"fmt"

	"github.com/go-gpviz/gpviz/internal/kernel"
	"github.com/go-gpviz/gpviz/pkg/math/matrix"
	"github.com/go-gpviz/gpviz/pkg/math/randn"
	"github.com/go-gpviz/gpviz/pkg/math/vector"
)

// DefaultJitter is added to the sampling covariance diagonal to keep the
// factorization stable on dense grids.
const DefaultJitter = 1e-6

// Point is a single noisy observation of the latent function.
type Point struct {
	X float64
	Y float64
}

// Params is the hyperparameter record applied to every computation.
// NoiseLevel is a standard deviation, its square lands on the train
// covariance diagonal.
type Params struct {
	Kernel         kernel.Type `json:"kernel"`
	LengthScale    float64     `json:"lengthScale"`
	SignalVariance float64     `json:"signalVariance"`
	NoiseLevel     float64     `json:"noiseLevel"`
}

func DefaultParams() Params {
	return Params{
		Kernel:         kernel.TypeRBF,
		LengthScale:    1,
		SignalVariance: 1,
		NoiseLevel:     0.1,
	}
}

// Validate reports the first boundary violation. The engine itself assumes
// parameters were validated at the boundary.
func (p Params) Validate() error {
	if !p.Kernel.Valid() {
		return fmt.Errorf("unknown kernel type: %s", p.Kernel)
	}
	if p.LengthScale <= 0 {
		return fmt.Errorf("length scale must be positive, got %v", p.LengthScale)
	}
	if p.SignalVariance <= 0 {
		return fmt.Errorf("signal variance must be positive, got %v", p.SignalVariance)
	}
	if p.NoiseLevel < 0 {
		return fmt.Errorf("noise level must not be negative, got %v", p.NoiseLevel)
	}
	return nil
}

// Posterior holds the pointwise posterior over a test grid.
type Posterior struct {
	Mean     vector.V
	Variance vector.V
}

type Options struct {
	jitter float64
	source randn.Source
}

var defaultOptions = Options{jitter: DefaultJitter}

type Option func(*Engine)

func WithJitter(jitter float64) Option {
	return func(e *Engine) {
		e.opts.jitter = jitter
	}
}

func WithSource(src randn.Source) Option {
	return func(e *Engine) {
		e.opts.source = src
	}
}

// New returns an engine. The zero option set draws randomness from
// fastrand and uses DefaultJitter.
func New(opts ...Option) *Engine {
	e := &Engine{opts: defaultOptions}
	for _, f := range opts {
		f(e)
	}
	e.normal = randn.New(e.opts.source)
	return e
}

// Engine computes posteriors and samples. It is stateless between calls
// and safe for concurrent use as long as its random source is.
type Engine struct {
	opts   Options
	normal *randn.Normal
}

// Posterior computes the posterior mean and variance on the test grid.
// Without observations it returns the prior: zero mean and signal
// variance everywhere. A failed factorization is reported with
// matrix.ErrNotPositiveDefinite in the chain and leaves no partial state,
// the caller keeps whatever it rendered last.
func (e *Engine) Posterior(points []Point, testX vector.V, p Params) (*Posterior, error) {
	kfn, err := kernel.FuncFor(p.Kernel, p.LengthScale, p.SignalVariance)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve kernel: %w", err)
	}
	m := len(testX)
	post := &Posterior{Mean: vector.Zeros(m), Variance: vector.Zeros(m)}
	if m == 0 {
		return post, nil
	}
	if len(points) == 0 {
		post.Variance.Fill(p.SignalVariance)
		return post, nil
	}

	l, alpha, err := e.condition(points, kfn, p.NoiseLevel)
	if err != nil {
		return nil, err
	}

	kst := crossCov(kfn, testX, points)
	post.Mean = kst.MulVec(alpha)
	for j := 0; j < m; j++ {
		v := matrix.SolveL(l, kst.Row(j))
		post.Variance[j] = kfn(testX[j], testX[j]) - v.Dot(v)
	}
	// rounding may push a vanishing variance slightly below zero
	post.Variance.Apply(clampNonNegative)
	return post, nil
}

// Sample draws one curve from the posterior over the sample grid. The full
// covariance is assembled, jittered on the diagonal and factorized; the
// curve is mean + L * z with z built from the injected source, so a
// deterministic source yields a deterministic curve.
func (e *Engine) Sample(points []Point, sampleX vector.V, p Params) (vector.V, error) {
	kfn, err := kernel.FuncFor(p.Kernel, p.LengthScale, p.SignalVariance)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve kernel: %w", err)
	}
	m := len(sampleX)
	if m == 0 {
		return vector.V{}, nil
	}

	mean := vector.Zeros(m)
	cov := matrix.New(m, m)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			value := kfn(sampleX[i], sampleX[j])
			cov.Set(i, j, value)
			cov.Set(j, i, value)
		}
	}

	if len(points) > 0 {
		l, alpha, err := e.condition(points, kfn, p.NoiseLevel)
		if err != nil {
			return nil, err
		}
		kst := crossCov(kfn, sampleX, points)
		mean = kst.MulVec(alpha)

		solved := matrix.New(m, len(points))
		for j := 0; j < m; j++ {
			v := matrix.SolveL(l, kst.Row(j))
			for i := range v {
				solved.Set(j, i, v[i])
			}
		}
		explained := solved.Mul(solved.T())
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				cov.Set(i, j, cov.At(i, j)-explained.At(i, j))
			}
		}
	}

	for i := 0; i < m; i++ {
		cov.Set(i, i, cov.At(i, i)+e.opts.jitter)
	}
	l, err := matrix.Cholesky(cov)
	if err != nil {
		return nil, fmt.Errorf("unable to factorize sampling covariance: %w", err)
	}

	z := make(vector.V, m)
	e.normal.Fill(z)
	return mean.Add(l.MulVec(z)), nil
}

// condition factorizes the train covariance and solves for the weights.
func (e *Engine) condition(points []Point, kfn kernel.Fn, noise float64) (matrix.M, vector.V, error) {
	n := len(points)
	k := matrix.New(n, n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			value := kfn(points[i].X, points[j].X)
			k.Set(i, j, value)
			k.Set(j, i, value)
		}
	}
	for i := 0; i < n; i++ {
		k.Set(i, i, k.At(i, i)+noise*noise)
	}

	l, err := matrix.Cholesky(k)
	if err != nil {
		return matrix.M{}, nil, fmt.Errorf("unable to factorize train covariance: %w", err)
	}

	y := make(vector.V, n)
	for i := range points {
		y[i] = points[i].Y
	}
	return l, matrix.CholSolve(l, y), nil
}

// crossCov builds the test against train covariance, one row per test
// point.
func crossCov(kfn kernel.Fn, testX vector.V, points []Point) matrix.M {
	kst := matrix.New(len(testX), len(points))
	for j := range testX {
		for i := range points {
			kst.Set(j, i, kfn(testX[j], points[i].X))
		}
	}
	return kst
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
