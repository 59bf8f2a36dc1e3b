// Package scene keeps the interactive regression scenes in memory: the
// observation set, the hyperparameters and the recent sample history of
// each canvas. Every mutation is announced through the watch hub so open
// clients re-render.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/kernel"
	"github.com/go-gpviz/gpviz/internal/telemetry"
	"github.com/go-gpviz/gpviz/internal/watch"
	"github.com/go-gpviz/gpviz/pkg/container/ring"
	"github.com/go-gpviz/gpviz/pkg/math/matrix"
	"github.com/go-gpviz/gpviz/pkg/math/randn"
	"github.com/go-gpviz/gpviz/pkg/math/vector"
)

// Contract for returning the Manager instance
type ProvideFn func(watch.Manager, chan<- error) (Manager, error)

var (
	ErrNotFound         = errors.New("scene not found")
	ErrObservationLimit = errors.New("observation limit reached")
)

// operation labels on the engine telemetry
const (
	opPosterior = "posterior"
	opSample    = "sample"
	opGenerate  = "generate"
)

// The interface defines the behavior of the scene service with all available
// methods.
type Manager interface {
	Keeper
	Collector
	Renderer
	Sampler
	// Number of live scenes
	Len() int
	// Start method of the service
	Run(context.Context) error
	// Method for stopping the service
	Stop()
}

// Keeper defines the lifecycle of a scene
type Keeper interface {
	// Create registers a scene, nil params means defaults
	Create(params *gp.Params) (State, error)
	// Get returns a snapshot of the scene
	Get(id uuid.UUID) (State, error)
	// Delete removes the scene
	Delete(id uuid.UUID) error
	// Clear drops observations and history, parameters stay
	Clear(id uuid.UUID) (State, error)
	// SetParams replaces the scene hyperparameters
	SetParams(id uuid.UUID, params gp.Params) (State, error)
}

// Collector defines how observations enter a scene
type Collector interface {
	// The method accepts points from outside and appends them to the scene
	Observe(id uuid.UUID, points []gp.Point, origin Origin) (State, error)
	// The method generates n observations inside the range
	Random(id uuid.UUID, n int, xmin, xmax float64) (State, error)
}

// The interface defines the posterior rendering behavior
type Renderer interface {
	// Posterior renders mean and variance over a uniform grid
	Posterior(id uuid.UUID, xmin, xmax float64, points int) (Curve, error)
	// PosteriorUnder renders the same observations under another kernel
	PosteriorUnder(id uuid.UUID, kt kernel.Type, xmin, xmax float64, points int) (Curve, error)
}

// Sampler defines posterior curve drawing
type Sampler interface {
	// Sample draws one curve and returns it with the retained history
	Sample(id uuid.UUID, xmin, xmax float64, points int) (Sample, []Sample, error)
}

const (
	defaultMaxScenes       = 64
	defaultMaxIdleTime     = time.Hour
	defaultRebuildTime     = time.Minute
	defaultHistoryCap      = 5
	defaultMaxObservations = 512
)

type Options struct {
	maxScenes       int
	maxIdleTime     time.Duration
	rebuildTime     time.Duration
	historyCap      int
	maxObservations int
	source          randn.Source
}

type Option func(*manager)

func WithMaxScenes(n int) Option {
	return func(o *manager) {
		o.opts.maxScenes = n
	}
}

func WithTTL(t time.Duration) Option {
	return func(o *manager) {
		o.opts.maxIdleTime = t
	}
}

func WithRebuildTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.rebuildTime = t
	}
}

func WithHistoryCap(n int) Option {
	return func(o *manager) {
		o.opts.historyCap = n
	}
}

func WithMaxObservations(n int) Option {
	return func(o *manager) {
		o.opts.maxObservations = n
	}
}

func WithSource(src randn.Source) Option {
	return func(o *manager) {
		o.opts.source = src
	}
}

// New returns manager
func New(
	engine *gp.Engine,
	notifier watch.Publisher,
	shutdownCh chan<- error,
	opts ...Option,
) (*manager, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine instance is not created")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier instance is not created")
	}

	m := &manager{
		engine:     engine,
		notifier:   notifier,
		scenes:     map[uuid.UUID]*entry{},
		shutdownCh: shutdownCh,
		opts: Options{
			maxScenes:       defaultMaxScenes,
			maxIdleTime:     defaultMaxIdleTime,
			rebuildTime:     defaultRebuildTime,
			historyCap:      defaultHistoryCap,
			maxObservations: defaultMaxObservations,
		},
	}

	for _, f := range opts {
		f(m)
	}

	m.rnd = randn.New(m.opts.source)

	// Creating a new instance of the eviction loop
	m.janitor = newJanitor(janitorConfig{
		maxScenes:   m.opts.maxScenes,
		maxIdleTime: m.opts.maxIdleTime,
		rebuildTime: m.opts.rebuildTime,
	})

	return m, nil
}

var _ Manager = (*manager)(nil)

// The manager owns every scene in memory behind a single RW mutex. Heavy
// engine computations run outside the lock on a snapshot of the scene.
type manager struct {
	mtx sync.RWMutex

	// Manager options
	opts Options
	// Posterior and sampling computations
	engine *gp.Engine
	// The change notification hub
	notifier watch.Publisher
	// Scene eviction loop
	janitor *janitor
	// Uniform positions for generated observations
	rnd *randn.Normal

	// Scenes by id
	scenes map[uuid.UUID]*entry
	// Channel to shutdown the application
	shutdownCh chan<- error

	closed bool
	cancel func()
}

// entry is the mutable in-memory form of a scene
type entry struct {
	id           uuid.UUID
	params       gp.Params
	observations []Observation
	history      *ring.Ring
	createdAt    time.Time
	updatedAt    time.Time
}

func (e *entry) snapshot() State {
	obs := make([]Observation, len(e.observations))
	copy(obs, e.observations)

	items := e.history.Items()
	samples := make([]Sample, 0, len(items))
	for _, item := range items {
		samples = append(samples, item.(Sample))
	}

	return State{
		ID:           e.id,
		Params:       e.params,
		Observations: obs,
		Samples:      samples,
		CreatedAt:    e.createdAt,
		UpdatedAt:    e.updatedAt,
	}
}

func (e *entry) points() []gp.Point {
	pts := make([]gp.Point, len(e.observations))
	for i := range e.observations {
		pts[i] = gp.Point{X: e.observations[i].X, Y: e.observations[i].Y}
	}
	return pts
}

// The Run method starts the eviction loop
func (m *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go m.keeper(ctx)

	return nil
}

// Stop the manager
func (m *manager) Stop() {
	m.cancel()
}

func (m *manager) keeper(ctx context.Context) {
	defer func() {
		m.shutdownCh <- m.shutdown()
	}()
	m.janitor.schedule(ctx, m.States, m.evict)
}

func (m *manager) shutdown() error {
	m.mtx.Lock()
	m.closed = true
	m.scenes = map[uuid.UUID]*entry{}
	m.mtx.Unlock()
	return nil
}

// Create registers a new scene. When the set is full the least recently
// touched scene makes room first.
func (m *manager) Create(params *gp.Params) (State, error) {
	p := gp.DefaultParams()
	if params != nil {
		if err := params.Validate(); err != nil {
			return State{}, err
		}
		p = *params
	}

	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		return State{}, fmt.Errorf("unable to create scene, shutting down")
	}

	var evictedID uuid.UUID
	evict := false
	if m.opts.maxScenes > 0 && len(m.scenes) >= m.opts.maxScenes {
		if evictedID, evict = m.oldestLocked(); evict {
			delete(m.scenes, evictedID)
		}
	}

	now := time.Now()
	e := &entry{
		id:        uuid.New(),
		params:    p,
		history:   ring.New(m.opts.historyCap),
		createdAt: now,
		updatedAt: now,
	}
	m.scenes[e.id] = e
	st := e.snapshot()
	m.mtx.Unlock()

	if evict {
		m.notifier.Publish(watch.Event{SceneID: evictedID, Kind: watch.KindEvicted})
	}
	m.notifier.Publish(watch.Event{SceneID: st.ID, Kind: watch.KindParams})
	return st, nil
}

// oldestLocked finds the least recently touched scene. Callers hold the lock.
func (m *manager) oldestLocked() (uuid.UUID, bool) {
	var id uuid.UUID
	var at time.Time
	found := false
	for k, e := range m.scenes {
		if !found || e.updatedAt.Before(at) {
			id, at, found = k, e.updatedAt, true
		}
	}
	return id, found
}

func (m *manager) Get(id uuid.UUID) (State, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	e, ok := m.scenes[id]
	if !ok {
		return State{}, ErrNotFound
	}
	return e.snapshot(), nil
}

func (m *manager) Delete(id uuid.UUID) error {
	m.mtx.Lock()
	if _, ok := m.scenes[id]; !ok {
		m.mtx.Unlock()
		return ErrNotFound
	}
	delete(m.scenes, id)
	m.mtx.Unlock()

	m.notifier.Publish(watch.Event{SceneID: id, Kind: watch.KindEvicted})
	return nil
}

// Clear drops the observations and the sample history of a scene. The
// parameters survive, so the next render shows the bare prior.
func (m *manager) Clear(id uuid.UUID) (State, error) {
	m.mtx.Lock()
	e, ok := m.scenes[id]
	if !ok {
		m.mtx.Unlock()
		return State{}, ErrNotFound
	}
	e.observations = nil
	e.history.Reset()
	e.updatedAt = time.Now()
	st := e.snapshot()
	m.mtx.Unlock()

	m.notifier.Publish(watch.Event{SceneID: id, Kind: watch.KindCleared})
	return st, nil
}

// SetParams replaces the scene hyperparameters. Observations are kept, the
// posterior is defined by the new parameters from here on.
func (m *manager) SetParams(id uuid.UUID, params gp.Params) (State, error) {
	if err := params.Validate(); err != nil {
		return State{}, err
	}

	m.mtx.Lock()
	e, ok := m.scenes[id]
	if !ok {
		m.mtx.Unlock()
		return State{}, ErrNotFound
	}
	e.params = params
	e.updatedAt = time.Now()
	st := e.snapshot()
	m.mtx.Unlock()

	m.notifier.Publish(watch.Event{SceneID: id, Kind: watch.KindParams})
	return st, nil
}

// Observe appends points to the scene
func (m *manager) Observe(id uuid.UUID, points []gp.Point, origin Origin) (State, error) {
	if len(points) == 0 {
		return State{}, fmt.Errorf("no points to observe")
	}

	m.mtx.Lock()
	e, ok := m.scenes[id]
	if !ok {
		m.mtx.Unlock()
		return State{}, ErrNotFound
	}
	if m.opts.maxObservations > 0 && len(e.observations)+len(points) > m.opts.maxObservations {
		m.mtx.Unlock()
		return State{}, ErrObservationLimit
	}
	for i := range points {
		e.observations = append(e.observations, NewObservation(points[i].X, points[i].Y, origin))
	}
	e.updatedAt = time.Now()
	st := e.snapshot()
	m.mtx.Unlock()

	telemetry.RecordObservations(context.Background(), len(points))
	m.notifier.Publish(watch.Event{SceneID: id, Kind: watch.KindObservations})
	return st, nil
}

// Random places n observations at uniform positions inside the range. The
// values are drawn from the scene prior so the generated set is consistent
// with the configured kernel.
func (m *manager) Random(id uuid.UUID, n int, xmin, xmax float64) (State, error) {
	if n <= 0 {
		return State{}, fmt.Errorf("generate count must be positive, got: %d", n)
	}
	if xmax <= xmin {
		return State{}, fmt.Errorf("invalid range [%v, %v]", xmin, xmax)
	}

	m.mtx.RLock()
	e, ok := m.scenes[id]
	if !ok {
		m.mtx.RUnlock()
		return State{}, ErrNotFound
	}
	params := e.params
	m.mtx.RUnlock()

	xs := make(vector.V, n)
	for i := range xs {
		xs[i] = m.rnd.Uniform(xmin, xmax)
	}
	sort.Float64s(xs)

	began := time.Now()
	ys, err := m.engine.Sample(nil, xs, params)
	if err != nil {
		if errors.Is(err, matrix.ErrNotPositiveDefinite) {
			telemetry.RecordFactorizationFailure(context.Background(), opGenerate)
		}
		return State{}, fmt.Errorf("unable to draw generated values: %w", err)
	}
	telemetry.RecordCompute(context.Background(), opGenerate, string(params.Kernel), time.Since(began))

	points := make([]gp.Point, n)
	for i := range points {
		points[i] = gp.Point{X: xs[i], Y: ys[i]}
	}
	return m.Observe(id, points, OriginRandom)
}

// Posterior renders the posterior over a uniform grid of the given size
func (m *manager) Posterior(id uuid.UUID, xmin, xmax float64, points int) (Curve, error) {
	m.mtx.RLock()
	e, ok := m.scenes[id]
	if !ok {
		m.mtx.RUnlock()
		return Curve{}, ErrNotFound
	}
	params := e.params
	pts := e.points()
	m.mtx.RUnlock()

	return m.render(pts, params, xmin, xmax, points)
}

// PosteriorUnder renders the scene observations under another kernel. The
// scene itself is not touched, the call powers side by side comparison.
func (m *manager) PosteriorUnder(id uuid.UUID, kt kernel.Type, xmin, xmax float64, points int) (Curve, error) {
	if !kt.Valid() {
		return Curve{}, fmt.Errorf("unknown kernel type: %s", kt)
	}

	m.mtx.RLock()
	e, ok := m.scenes[id]
	if !ok {
		m.mtx.RUnlock()
		return Curve{}, ErrNotFound
	}
	params := e.params
	params.Kernel = kt
	pts := e.points()
	m.mtx.RUnlock()

	return m.render(pts, params, xmin, xmax, points)
}

func (m *manager) render(pts []gp.Point, params gp.Params, xmin, xmax float64, points int) (Curve, error) {
	if points < 1 {
		return Curve{}, fmt.Errorf("grid size must be positive, got: %d", points)
	}
	if xmax <= xmin {
		return Curve{}, fmt.Errorf("invalid range [%v, %v]", xmin, xmax)
	}

	grid := vector.Linspace(xmin, xmax, points)
	began := time.Now()
	post, err := m.engine.Posterior(pts, grid, params)
	if err != nil {
		if errors.Is(err, matrix.ErrNotPositiveDefinite) {
			telemetry.RecordFactorizationFailure(context.Background(), opPosterior)
		}
		return Curve{}, err
	}
	telemetry.RecordCompute(context.Background(), opPosterior, string(params.Kernel), time.Since(began))
	return Curve{Kernel: params.Kernel, X: grid, Mean: post.Mean, Variance: post.Variance}, nil
}

// Sample draws one posterior curve, stores it in the scene history and
// returns it together with the retained curves, oldest first.
func (m *manager) Sample(id uuid.UUID, xmin, xmax float64, points int) (Sample, []Sample, error) {
	if points < 1 {
		return Sample{}, nil, fmt.Errorf("grid size must be positive, got: %d", points)
	}
	if xmax <= xmin {
		return Sample{}, nil, fmt.Errorf("invalid range [%v, %v]", xmin, xmax)
	}

	m.mtx.RLock()
	e, ok := m.scenes[id]
	if !ok {
		m.mtx.RUnlock()
		return Sample{}, nil, ErrNotFound
	}
	params := e.params
	pts := e.points()
	m.mtx.RUnlock()

	grid := vector.Linspace(xmin, xmax, points)
	began := time.Now()
	ys, err := m.engine.Sample(pts, grid, params)
	if err != nil {
		if errors.Is(err, matrix.ErrNotPositiveDefinite) {
			telemetry.RecordFactorizationFailure(context.Background(), opSample)
		}
		return Sample{}, nil, err
	}
	telemetry.RecordCompute(context.Background(), opSample, string(params.Kernel), time.Since(began))
	smp := NewSample(grid, ys)

	// the scene may have been evicted while the curve was computed
	m.mtx.Lock()
	e, ok = m.scenes[id]
	if !ok {
		m.mtx.Unlock()
		return Sample{}, nil, ErrNotFound
	}
	e.history.Push(smp)
	e.updatedAt = time.Now()
	st := e.snapshot()
	m.mtx.Unlock()

	telemetry.RecordSample(context.Background(), string(params.Kernel))
	m.notifier.Publish(watch.Event{SceneID: id, Kind: watch.KindSamples})
	return smp, st.Samples, nil
}

// States returns a snapshot of every live scene
func (m *manager) States() []State {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	states := make([]State, 0, len(m.scenes))
	for _, e := range m.scenes {
		states = append(states, e.snapshot())
	}
	return states
}

// Len reports the number of live scenes
func (m *manager) Len() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.scenes)
}

// evict removes the scenes and tells their watchers
func (m *manager) evict(ids []uuid.UUID) int {
	m.mtx.Lock()
	evicted := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.scenes[id]; !ok {
			continue
		}
		delete(m.scenes, id)
		evicted = append(evicted, id)
	}
	m.mtx.Unlock()

	for _, id := range evicted {
		m.notifier.Publish(watch.Event{SceneID: id, Kind: watch.KindEvicted})
	}
	return len(evicted)
}
