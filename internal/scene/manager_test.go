package scene

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/kernel"
	"github.com/go-gpviz/gpviz/internal/watch"
)

type stubNotifier struct {
	events []watch.Event
}

func (s *stubNotifier) Publish(evt watch.Event) {
	s.events = append(s.events, evt)
}

func (s *stubNotifier) kinds() []watch.Kind {
	kinds := make([]watch.Kind, 0, len(s.events))
	for _, evt := range s.events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

type sourceFn func() float64

func (f sourceFn) Float64() float64 { return f() }

func newTestManager(t *testing.T, opts ...Option) (*manager, *stubNotifier) {
	t.Helper()
	notifier := &stubNotifier{}
	m, err := New(gp.New(), notifier, make(chan error, 1), opts...)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	return m, notifier
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name           string
		params         *gp.Params
		expectedErr    bool
		expectedKernel kernel.Type
	}{
		{
			name:           "default_params",
			expectedKernel: kernel.TypeRBF,
		},
		{
			name: "custom_params",
			params: &gp.Params{
				Kernel: kernel.TypeMatern52, LengthScale: 0.5, SignalVariance: 2, NoiseLevel: 0.2,
			},
			expectedKernel: kernel.TypeMatern52,
		},
		{
			name:        "invalid_params",
			params:      &gp.Params{Kernel: "SPLINE", LengthScale: 1, SignalVariance: 1},
			expectedErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, notifier := newTestManager(t)
			st, err := m.Create(test.params)
			if test.expectedErr {
				if err == nil {
					t.Fatalf("the error should be returned for the params %+v", test.params)
				}
				if m.Len() != 0 {
					t.Errorf("calling the Len method, the number of scenes got: %v, expected: %v", m.Len(), 0)
				}
				return
			}
			if err != nil {
				t.Fatalf("the error should not be returned: %v", err)
			}
			if st.Params.Kernel != test.expectedKernel {
				t.Errorf(
					"calling the Create method, the kernel got: %v, expected: %v",
					st.Params.Kernel, test.expectedKernel,
				)
			}
			if len(st.Observations) != 0 || len(st.Samples) != 0 {
				t.Errorf("the created scene is not empty: %+v", st)
			}
			if m.Len() != 1 {
				t.Errorf("calling the Len method, the number of scenes got: %v, expected: %v", m.Len(), 1)
			}
			kinds := notifier.kinds()
			if len(kinds) != 1 || kinds[0] != watch.KindParams {
				t.Errorf("the published kinds got: %v, expected: [%v]", kinds, watch.KindParams)
			}
		})
	}
}

func TestCreateEvictsOldest(t *testing.T) {
	m, notifier := newTestManager(t, WithMaxScenes(2))

	first, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := m.Create(nil); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	third, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	if m.Len() != 2 {
		t.Fatalf("calling the Len method, the number of scenes got: %v, expected: %v", m.Len(), 2)
	}
	if _, err := m.Get(first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("the oldest scene must be evicted, the Get error got: %v, expected: %v", err, ErrNotFound)
	}
	if _, err := m.Get(third.ID); err != nil {
		t.Errorf("the error should not be returned: %v", err)
	}

	events := notifier.events
	if len(events) != 4 {
		t.Fatalf("the number of published events got: %v, expected: %v", len(events), 4)
	}
	if events[2].Kind != watch.KindEvicted || events[2].SceneID != first.ID {
		t.Errorf(
			"the eviction event got: %v %v, expected: %v %v",
			events[2].Kind, events[2].SceneID, watch.KindEvicted, first.ID,
		)
	}
}

func TestGet(t *testing.T) {
	m, _ := newTestManager(t)
	created, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	st, err := m.Get(created.ID)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if st.ID != created.ID || st.Params != created.Params {
		t.Errorf("calling the Get method, the state got: %+v, expected: %+v", st, created)
	}

	if _, err := m.Get(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the Get method, the error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestDelete(t *testing.T) {
	m, notifier := newTestManager(t)
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	if err := m.Delete(st.ID); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("calling the Len method, the number of scenes got: %v, expected: %v", m.Len(), 0)
	}
	last := notifier.events[len(notifier.events)-1]
	if last.Kind != watch.KindEvicted || last.SceneID != st.ID {
		t.Errorf("the last event got: %v %v, expected: %v %v", last.Kind, last.SceneID, watch.KindEvicted, st.ID)
	}

	if err := m.Delete(st.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the Delete method twice, the error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestObserve(t *testing.T) {
	m, notifier := newTestManager(t)
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	points := []gp.Point{{X: -1, Y: 0.5}, {X: 1, Y: -0.5}}
	got, err := m.Observe(st.ID, points, OriginUser)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(got.Observations) != len(points) {
		t.Fatalf(
			"calling the Observe method, the number of observations got: %v, expected: %v",
			len(got.Observations), len(points),
		)
	}
	for i, obs := range got.Observations {
		if obs.X != points[i].X || obs.Y != points[i].Y || obs.Origin != OriginUser {
			t.Errorf(
				"the observation %d got: %+v, expected x: %v, y: %v, origin: %v",
				i, obs, points[i].X, points[i].Y, OriginUser,
			)
		}
	}
	last := notifier.events[len(notifier.events)-1]
	if last.Kind != watch.KindObservations {
		t.Errorf("the last event kind got: %v, expected: %v", last.Kind, watch.KindObservations)
	}

	if _, err := m.Observe(st.ID, nil, OriginUser); err == nil {
		t.Errorf("the error should be returned for an empty batch")
	}
	if _, err := m.Observe(uuid.New(), points, OriginUser); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the Observe method, the error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestObserveLimit(t *testing.T) {
	m, _ := newTestManager(t, WithMaxObservations(3))
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	if _, err := m.Observe(st.ID, []gp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, OriginUser); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if _, err := m.Observe(st.ID, []gp.Point{{X: 2, Y: 2}, {X: 3, Y: 3}}, OriginUser); !errors.Is(err, ErrObservationLimit) {
		t.Fatalf("calling the Observe method over the limit, the error got: %v, expected: %v", err, ErrObservationLimit)
	}

	got, err := m.Get(st.ID)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(got.Observations) != 2 {
		t.Errorf(
			"the rejected batch must not be applied, the number of observations got: %v, expected: %v",
			len(got.Observations), 2,
		)
	}
}

func TestClear(t *testing.T) {
	m, notifier := newTestManager(t)
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if _, err := m.Observe(st.ID, []gp.Point{{X: 0, Y: 1}}, OriginUser); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if _, _, err := m.Sample(st.ID, -1, 1, 5); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	got, err := m.Clear(st.ID)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(got.Observations) != 0 || len(got.Samples) != 0 {
		t.Errorf("the cleared scene still holds data: %+v", got)
	}
	if got.Params != st.Params {
		t.Errorf("the params after Clear got: %+v, expected: %+v", got.Params, st.Params)
	}
	last := notifier.events[len(notifier.events)-1]
	if last.Kind != watch.KindCleared {
		t.Errorf("the last event kind got: %v, expected: %v", last.Kind, watch.KindCleared)
	}

	if _, err := m.Clear(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the Clear method, the error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestSetParams(t *testing.T) {
	m, notifier := newTestManager(t)
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	next := gp.Params{Kernel: kernel.TypeMatern12, LengthScale: 2, SignalVariance: 0.5, NoiseLevel: 0}
	got, err := m.SetParams(st.ID, next)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if got.Params != next {
		t.Errorf("calling the SetParams method, the params got: %+v, expected: %+v", got.Params, next)
	}
	last := notifier.events[len(notifier.events)-1]
	if last.Kind != watch.KindParams {
		t.Errorf("the last event kind got: %v, expected: %v", last.Kind, watch.KindParams)
	}

	if _, err := m.SetParams(st.ID, gp.Params{Kernel: "SPLINE"}); err == nil {
		t.Errorf("the error should be returned for invalid params")
	}
	if _, err := m.SetParams(uuid.New(), next); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the SetParams method, the error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestRandom(t *testing.T) {
	values := []float64{0.15, 0.85, 0.5}
	var idx int
	m, notifier := newTestManager(t, WithSource(sourceFn(func() float64 {
		v := values[idx%len(values)]
		idx++
		return v
	})))
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	got, err := m.Random(st.ID, 3, -1, 1)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(got.Observations) != 3 {
		t.Fatalf(
			"calling the Random method, the number of observations got: %v, expected: %v",
			len(got.Observations), 3,
		)
	}
	prev := math.Inf(-1)
	for i, obs := range got.Observations {
		if obs.Origin != OriginRandom {
			t.Errorf("the observation %d origin got: %v, expected: %v", i, obs.Origin, OriginRandom)
		}
		if obs.X < -1 || obs.X >= 1 {
			t.Errorf("the observation %d position got: %v, expected a value in [-1, 1)", i, obs.X)
		}
		if obs.X < prev {
			t.Errorf("the generated positions are not sorted: %v after %v", obs.X, prev)
		}
		prev = obs.X
	}
	last := notifier.events[len(notifier.events)-1]
	if last.Kind != watch.KindObservations {
		t.Errorf("the last event kind got: %v, expected: %v", last.Kind, watch.KindObservations)
	}

	if _, err := m.Random(st.ID, 0, -1, 1); err == nil {
		t.Errorf("the error should be returned for a non-positive count")
	}
	if _, err := m.Random(st.ID, 3, 1, -1); err == nil {
		t.Errorf("the error should be returned for an inverted range")
	}
	if _, err := m.Random(uuid.New(), 3, -1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the Random method, the error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestPosterior(t *testing.T) {
	m, _ := newTestManager(t)
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if _, err := m.Observe(st.ID, []gp.Point{{X: 0, Y: 1}}, OriginUser); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	curve, err := m.Posterior(st.ID, -1, 1, 5)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(curve.X) != 5 || len(curve.Mean) != 5 || len(curve.Variance) != 5 {
		t.Fatalf("the curve lengths got: %v %v %v, expected: 5", len(curve.X), len(curve.Mean), len(curve.Variance))
	}
	if curve.X[0] != -1 || curve.X[4] != 1 {
		t.Errorf("the grid endpoints got: %v and %v, expected: -1 and 1", curve.X[0], curve.X[4])
	}
	if curve.Kernel != kernel.TypeRBF {
		t.Errorf("the curve kernel got: %v, expected: %v", curve.Kernel, kernel.TypeRBF)
	}
	// the grid center sits on the single observation, k(0,0)/(k(0,0)+noise^2)
	if got := curve.Mean[2]; math.Abs(got-0.9900990099009901) > 1e-9 {
		t.Errorf("the mean over the observation got: %v, expected: %v", got, 0.9900990099009901)
	}
	for i := range curve.Variance {
		if curve.Variance[i] < 0 {
			t.Errorf("the variance at %v got: %v, expected a non-negative value", curve.X[i], curve.Variance[i])
		}
	}

	if _, err := m.Posterior(st.ID, -1, 1, 0); err == nil {
		t.Errorf("the error should be returned for an empty grid")
	}
	if _, err := m.Posterior(st.ID, 1, -1, 5); err == nil {
		t.Errorf("the error should be returned for an inverted range")
	}
	if _, err := m.Posterior(uuid.New(), -1, 1, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the Posterior method, the error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestPosteriorUnder(t *testing.T) {
	m, _ := newTestManager(t)
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	curve, err := m.PosteriorUnder(st.ID, kernel.TypeMatern32, -1, 1, 5)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if curve.Kernel != kernel.TypeMatern32 {
		t.Errorf("the curve kernel got: %v, expected: %v", curve.Kernel, kernel.TypeMatern32)
	}

	got, err := m.Get(st.ID)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if got.Params.Kernel != kernel.TypeRBF {
		t.Errorf(
			"the comparison render must not touch the scene, the kernel got: %v, expected: %v",
			got.Params.Kernel, kernel.TypeRBF,
		)
	}

	if _, err := m.PosteriorUnder(st.ID, kernel.Type("SPLINE"), -1, 1, 5); err == nil {
		t.Errorf("the error should be returned for an unknown kernel type")
	}
}

func TestSampleHistory(t *testing.T) {
	m, notifier := newTestManager(t)
	st, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	for i := 0; i < 7; i++ {
		smp, history, err := m.Sample(st.ID, -1, 1, 5)
		if err != nil {
			t.Fatalf("the error should not be returned: %v", err)
		}
		expected := i + 1
		if expected > defaultHistoryCap {
			expected = defaultHistoryCap
		}
		if len(history) != expected {
			t.Fatalf(
				"calling the Sample method, the history length got: %v, expected: %v",
				len(history), expected,
			)
		}
		if history[len(history)-1].ID != smp.ID {
			t.Errorf("the newest history entry got: %v, expected the returned sample: %v", history[len(history)-1].ID, smp.ID)
		}
		if len(smp.X) != 5 || len(smp.Y) != 5 {
			t.Errorf("the sample lengths got: %v and %v, expected: 5", len(smp.X), len(smp.Y))
		}
	}

	last := notifier.events[len(notifier.events)-1]
	if last.Kind != watch.KindSamples {
		t.Errorf("the last event kind got: %v, expected: %v", last.Kind, watch.KindSamples)
	}

	if _, _, err := m.Sample(uuid.New(), -1, 1, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("calling the Sample method, the error got: %v, expected: %v", err, ErrNotFound)
	}
	if _, _, err := m.Sample(st.ID, -1, 1, 0); err == nil {
		t.Errorf("the error should be returned for an empty grid")
	}
}

func TestEvict(t *testing.T) {
	m, notifier := newTestManager(t)
	first, err := m.Create(nil)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if _, err := m.Create(nil); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	got := m.evict([]uuid.UUID{first.ID, uuid.New()})
	if got != 1 {
		t.Fatalf("calling the evict method, the number of evicted scenes got: %v, expected: %v", got, 1)
	}
	if m.Len() != 1 {
		t.Errorf("calling the Len method, the number of scenes got: %v, expected: %v", m.Len(), 1)
	}
	last := notifier.events[len(notifier.events)-1]
	if last.Kind != watch.KindEvicted || last.SceneID != first.ID {
		t.Errorf("the last event got: %v %v, expected: %v %v", last.Kind, last.SceneID, watch.KindEvicted, first.ID)
	}
}

func TestStates(t *testing.T) {
	m, _ := newTestManager(t)
	for i := 0; i < 3; i++ {
		if _, err := m.Create(nil); err != nil {
			t.Fatalf("the error should not be returned: %v", err)
		}
	}
	if got := len(m.States()); got != 3 {
		t.Errorf("calling the States method, the number of snapshots got: %v, expected: %v", got, 3)
	}
}

func TestRunStop(t *testing.T) {
	notifier := &stubNotifier{}
	shutdownCh := make(chan error, 1)
	m, err := New(gp.New(), notifier, shutdownCh, WithRebuildTime(time.Hour))
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if _, err := m.Create(nil); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	m.Stop()

	select {
	case err := <-shutdownCh:
		if err != nil {
			t.Fatalf("the error should not be returned: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("the shutdown was not reported")
	}

	if m.Len() != 0 {
		t.Errorf("calling the Len method after shutdown, the number of scenes got: %v, expected: %v", m.Len(), 0)
	}
	if _, err := m.Create(nil); err == nil {
		t.Errorf("the error should be returned when creating a scene after shutdown")
	}
}
