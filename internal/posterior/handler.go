// Package posterior exposes the endpoint that renders the posterior mean
// and variance band of a scene over a uniform grid.
package posterior

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/go-gpviz/gpviz/internal/httputil"
	"github.com/go-gpviz/gpviz/internal/kernel"
	"github.com/go-gpviz/gpviz/internal/logging"
	"github.com/go-gpviz/gpviz/internal/scene"
	"github.com/go-gpviz/gpviz/internal/util"
	"github.com/go-gpviz/gpviz/pkg/math/matrix"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	SceneID uuid.UUID `json:"sceneId"`
	XMin    float64   `json:"xmin"`
	XMax    float64   `json:"xmax"`
	Points  int       `json:"points"`
	Compare bool      `json:"compare"`
}

type response struct {
	SceneID uuid.UUID     `json:"sceneId"`
	Curve   *scene.Curve  `json:"curve,omitempty"`
	Curves  []scene.Curve `json:"curves,omitempty"`
}

func NewHandler(cfg *Config, renderer scene.Renderer) (http.Handler, error) {
	return &handler{
		cfg:      cfg,
		renderer: renderer,
	}, nil
}

type handler struct {
	renderer scene.Renderer
	cfg      *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	if t := r.Header.Get("content-type"); len(t) < 16 || t[:16] != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		logger.Debug(fmt.Sprintf(`{"error": "%v"}`, "content-type is not application/json"))
		_, _ = fmt.Fprintf(w, `{"error": "%v"}`, "content-type is not application/json")
		return
	}

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	if err := d.Decode(&req); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return
	}

	if req.Points == 0 {
		req.Points = h.cfg.GridPoints
	}
	if req.Points < 1 || req.Points > h.cfg.MaxGridPoints {
		httputil.RespBadRequest(ctx, w, `{"error": "grid size must be in [1, %d], got: %d"}`, h.cfg.MaxGridPoints, req.Points)
		return
	}
	if req.XMin == 0 && req.XMax == 0 {
		req.XMin, req.XMax = h.cfg.XMin, h.cfg.XMax
	}
	if req.XMax <= req.XMin {
		httputil.RespBadRequest(ctx, w, `{"error": "invalid range [%v, %v]"}`, req.XMin, req.XMax)
		return
	}

	resp := response{SceneID: req.SceneID}
	var err error
	if req.Compare {
		resp.Curves, err = h.compare(req)
	} else {
		var curve scene.Curve
		curve, err = h.renderer.Posterior(req.SceneID, req.XMin, req.XMax, req.Points)
		resp.Curve = &curve
	}

	if err != nil {
		switch {
		case errors.Is(err, scene.ErrNotFound):
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, req.SceneID)
		case errors.Is(err, matrix.ErrNotPositiveDefinite):
			httputil.RespUnprocessable(ctx, w, `{"error": "covariance is not positive definite, %v"}`, err)
		default:
			httputil.RespInternalError(ctx, w, `{"error": "posterior processing error, %v"}`, err)
		}
		return
	}

	bytes, err := json.Marshal(resp)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	if resp.Curve != nil {
		sum := util.HashVectors(resp.Curve.X, resp.Curve.Mean, resp.Curve.Variance)
		w.Header().Set("ETag", util.ETag(sum))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}

// compare renders the scene observations under every kernel of the family,
// one goroutine per kernel.
func (h *handler) compare(req request) ([]scene.Curve, error) {
	types := kernel.Types()
	curves := make([]scene.Curve, len(types))

	errGrp := errgroup.Group{}
	for i, kt := range types {
		i, kt := i, kt
		errGrp.Go(func() error {
			curve, err := h.renderer.PosteriorUnder(req.SceneID, kt, req.XMin, req.XMax, req.Points)
			if err != nil {
				return fmt.Errorf("render under %s error: %w", kt, err)
			}
			curves[i] = curve
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}
	return curves, nil
}
