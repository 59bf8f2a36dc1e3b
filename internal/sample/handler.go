// Package sample exposes the endpoint that draws posterior curves, the
// playful half of the visualization. Each draw lands in the scene history
// so the last few curves stay on screen.
package sample

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/httputil"
	"github.com/go-gpviz/gpviz/internal/logging"
	"github.com/go-gpviz/gpviz/internal/scene"
	"github.com/go-gpviz/gpviz/pkg/math/matrix"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	SceneID uuid.UUID `json:"sceneId"`
	XMin    float64   `json:"xmin"`
	XMax    float64   `json:"xmax"`
	Points  int       `json:"points"`
}

type response struct {
	SceneID uuid.UUID      `json:"sceneId"`
	Sample  scene.Sample   `json:"sample"`
	History []scene.Sample `json:"history"`
}

func NewHandler(cfg *Config, sampler scene.Sampler) (http.Handler, error) {
	return &handler{
		cfg:     cfg,
		sampler: sampler,
	}, nil
}

type handler struct {
	sampler scene.Sampler
	cfg     *Config
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

	smp, history, err := h.sampler.Sample(req.SceneID, req.XMin, req.XMax, req.Points)
	if err != nil {
		switch {
		case errors.Is(err, scene.ErrNotFound):
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, req.SceneID)
		case errors.Is(err, matrix.ErrNotPositiveDefinite):
			httputil.RespUnprocessable(ctx, w, `{"error": "covariance is not positive definite, %v"}`, err)
		default:
			httputil.RespInternalError(ctx, w, `{"error": "sample processing error, %v"}`, err)
		}
		return
	}

	resp := response{SceneID: req.SceneID, Sample: smp, History: history}
	bytes, err := json.Marshal(resp)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}
