// Package observe exposes the endpoint that feeds points into a scene,
// either placed by the user or generated inside a range.
package observe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/httputil"
	"github.com/go-gpviz/gpviz/internal/logging"
	"github.com/go-gpviz/gpviz/internal/scene"
	"github.com/go-gpviz/gpviz/pkg/math/matrix"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	SceneID uuid.UUID `json:"sceneId"`
	Points  []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"points"`
	Random *struct {
		N    int     `json:"n"`
		XMin float64 `json:"xmin"`
		XMax float64 `json:"xmax"`
	} `json:"random"`
}

func NewHandler(cfg *Config, collector scene.Collector) (http.Handler, error) {
	return &handler{
		cfg:       cfg,
		collector: collector,
	}, nil
}

type handler struct {
	collector scene.Collector
	cfg       *Config
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

	if len(req.Points) > h.cfg.MaxPointsLen {
		httputil.RespBadRequest(ctx, w, `{"error": "points is too large, max allowed len is %d"}`, h.cfg.MaxPointsLen)
		return
	}

	var st scene.State
	var err error
	switch {
	case len(req.Points) > 0:
		pts := make([]gp.Point, len(req.Points))
		for i := range req.Points {
			pts[i] = gp.Point{X: req.Points[i].X, Y: req.Points[i].Y}
		}
		st, err = h.collector.Observe(req.SceneID, pts, scene.OriginUser)
	case req.Random != nil:
		if req.Random.N <= 0 {
			httputil.RespBadRequest(ctx, w, `{"error": "generate count must be positive, got: %d"}`, req.Random.N)
			return
		}
		if req.Random.XMax <= req.Random.XMin {
			httputil.RespBadRequest(ctx, w, `{"error": "invalid range [%v, %v]"}`, req.Random.XMin, req.Random.XMax)
			return
		}
		st, err = h.collector.Random(req.SceneID, req.Random.N, req.Random.XMin, req.Random.XMax)
	default:
		httputil.RespBadRequest(ctx, w, `{"error": "no points to observe"}`)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, scene.ErrNotFound):
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, req.SceneID)
		case errors.Is(err, scene.ErrObservationLimit):
			httputil.RespBadRequest(ctx, w, `{"error": "observation limit reached"}`)
		case errors.Is(err, matrix.ErrNotPositiveDefinite):
			httputil.RespUnprocessable(ctx, w, `{"error": "covariance is not positive definite, %v"}`, err)
		default:
			httputil.RespInternalError(ctx, w, `{"error": "observe error, %v"}`, err)
		}
		return
	}

	bytes, err := json.Marshal(st)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}
