package observe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/scene"
)

var _ scene.Collector = (*stubCollector)(nil)

type stubCollector struct {
	err error

	observed []gp.Point
	origin   scene.Origin
	n        int
}

func (s *stubCollector) Observe(id uuid.UUID, points []gp.Point, origin scene.Origin) (scene.State, error) {
	s.observed, s.origin = points, origin
	if s.err != nil {
		return scene.State{}, s.err
	}
	st := scene.State{ID: id, Params: gp.DefaultParams()}
	for _, p := range points {
		st.Observations = append(st.Observations, scene.NewObservation(p.X, p.Y, origin))
	}
	return st, nil
}

func (s *stubCollector) Random(id uuid.UUID, n int, xmin, xmax float64) (scene.State, error) {
	s.n = n
	if s.err != nil {
		return scene.State{}, s.err
	}
	return scene.State{ID: id, Params: gp.DefaultParams()}, nil
}

func testConfig() *Config {
	return &Config{RequestTimeout: 5 * time.Second, MaxPointsLen: 4}
}

func doRequest(t *testing.T, h http.Handler, method, body string, withType bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/observe", strings.NewReader(body))
	if withType {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlerObservesPoints(t *testing.T) {
	collector := &stubCollector{}
	h, err := NewHandler(testConfig(), collector)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	sceneID := uuid.New()
	body := fmt.Sprintf(`{"sceneId": %q, "points": [{"x": -1, "y": 0.5}, {"x": 1, "y": -0.5}]}`, sceneID)
	w := doRequest(t, h, "POST", body, true)
	if w.Code != http.StatusOK {
		t.Fatalf("the status code got: %v, expected: %v, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	if len(collector.observed) != 2 || collector.origin != scene.OriginUser {
		t.Errorf(
			"the collector call got: %v points with origin %v, expected: 2 points with origin %v",
			len(collector.observed), collector.origin, scene.OriginUser,
		)
	}
	if collector.observed[0].X != -1 || collector.observed[0].Y != 0.5 {
		t.Errorf("the first point got: %+v, expected: {-1 0.5}", collector.observed[0])
	}

	var st scene.State
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if st.ID != sceneID || len(st.Observations) != 2 {
		t.Errorf("the response state got: %v with %v observations, expected: %v with 2", st.ID, len(st.Observations), sceneID)
	}
}

func TestHandlerGeneratesPoints(t *testing.T) {
	collector := &stubCollector{}
	h, err := NewHandler(testConfig(), collector)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	body := fmt.Sprintf(`{"sceneId": %q, "random": {"n": 5, "xmin": -2, "xmax": 2}}`, uuid.New())
	w := doRequest(t, h, "POST", body, true)
	if w.Code != http.StatusOK {
		t.Fatalf("the status code got: %v, expected: %v, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if collector.n != 5 {
		t.Errorf("the generate count got: %v, expected: %v", collector.n, 5)
	}
}

func TestHandlerErrors(t *testing.T) {
	sceneID := uuid.New()
	point := `{"x": 0, "y": 1}`
	tests := []struct {
		name     string
		method   string
		body     string
		withType bool
		err      error
		expected int
	}{
		{
			name:     "method_not_allowed",
			method:   "GET",
			withType: true,
			expected: http.StatusMethodNotAllowed,
		},
		{
			name:     "missing_content_type",
			method:   "POST",
			body:     `{}`,
			expected: http.StatusUnsupportedMediaType,
		},
		{
			name:     "broken_json",
			method:   "POST",
			body:     `{"points": [`,
			withType: true,
			expected: http.StatusBadRequest,
		},
		{
			name:     "empty_batch",
			method:   "POST",
			body:     fmt.Sprintf(`{"sceneId": %q}`, sceneID),
			withType: true,
			expected: http.StatusBadRequest,
		},
		{
			name:   "batch_over_limit",
			method: "POST",
			body: fmt.Sprintf(
				`{"sceneId": %q, "points": [%s, %s, %s, %s, %s]}`,
				sceneID, point, point, point, point, point,
			),
			withType: true,
			expected: http.StatusBadRequest,
		},
		{
			name:     "zero_generate_count",
			method:   "POST",
			body:     fmt.Sprintf(`{"sceneId": %q, "random": {"n": 0, "xmin": -1, "xmax": 1}}`, sceneID),
			withType: true,
			expected: http.StatusBadRequest,
		},
		{
			name:     "inverted_generate_range",
			method:   "POST",
			body:     fmt.Sprintf(`{"sceneId": %q, "random": {"n": 3, "xmin": 1, "xmax": -1}}`, sceneID),
			withType: true,
			expected: http.StatusBadRequest,
		},
		{
			name:     "scene_not_found",
			method:   "POST",
			body:     fmt.Sprintf(`{"sceneId": %q, "points": [%s]}`, sceneID, point),
			withType: true,
			err:      scene.ErrNotFound,
			expected: http.StatusNotFound,
		},
		{
			name:     "observation_limit",
			method:   "POST",
			body:     fmt.Sprintf(`{"sceneId": %q, "points": [%s]}`, sceneID, point),
			withType: true,
			err:      scene.ErrObservationLimit,
			expected: http.StatusBadRequest,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h, err := NewHandler(testConfig(), &stubCollector{err: test.err})
			if err != nil {
				t.Fatalf("the error should not be returned: %v", err)
			}
			w := doRequest(t, h, test.method, test.body, test.withType)
			if w.Code != test.expected {
				t.Errorf(
					"the status code got: %v, expected: %v, body: %s",
					w.Code, test.expected, w.Body.String(),
				)
			}
		})
	}
}
