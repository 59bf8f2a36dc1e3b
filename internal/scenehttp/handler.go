// Package scenehttp exposes the scene lifecycle endpoints: create, fetch,
// delete, clear and hyperparameter updates.
package scenehttp

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
	"github.com/go-gpviz/gpviz/internal/util"
)

const maxBodyBytes = 64 * 1024 * 1024

func NewHandler(cfg *Config, keeper scene.Keeper) (http.Handler, error) {
	return &handler{
		cfg:    cfg,
		keeper: keeper,
	}, nil
}

type handler struct {
	keeper scene.Keeper
	cfg    *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	switch r.Method {
	case "POST":
		h.create(ctx, w, r)
	case "GET":
		h.get(ctx, w, r)
	case "DELETE":
		h.delete(ctx, w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
	}
}

func (h *handler) create(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params *gp.Params `json:"params"`
	}

	logger := logging.FromContext(ctx)
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

	if req.Params != nil {
		if err := req.Params.Validate(); err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
			return
		}
	}

	st, err := h.keeper.Create(req.Params)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "create scene error, %v"}`, err)
		return
	}
	h.respondState(ctx, w, st)
}

func (h *handler) get(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("scene_id"))
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "scene_id is not a valid uuid, %v"}`, err)
		return
	}

	st, err := h.keeper.Get(id)
	if err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, id)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "get scene error, %v"}`, err)
		return
	}

	xs, ys := st.Vectors()
	w.Header().Set("ETag", util.ETag(util.HashVectors(xs, ys)))
	h.respondState(ctx, w, st)
}

func (h *handler) delete(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("scene_id"))
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "scene_id is not a valid uuid, %v"}`, err)
		return
	}

	if err := h.keeper.Delete(id); err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, id)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "delete scene error, %v"}`, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status": "deleted"}`)
}

func (h *handler) respondState(ctx context.Context, w http.ResponseWriter, st scene.State) {
	bytes, err := json.Marshal(st)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}

// NewClearHandler returns the endpoint that drops the observations and the
// sample history of a scene.
func NewClearHandler(cfg *Config, keeper scene.Keeper) (http.Handler, error) {
	return &clearHandler{cfg: cfg, keeper: keeper}, nil
}

type clearHandler struct {
	keeper scene.Keeper
	cfg    *Config
}

func (h *clearHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SceneID uuid.UUID `json:"sceneId"`
	}

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

	st, err := h.keeper.Clear(req.SceneID)
	if err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, req.SceneID)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "clear scene error, %v"}`, err)
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

// NewParamsHandler returns the endpoint that replaces the hyperparameters
// of a scene.
func NewParamsHandler(cfg *Config, keeper scene.Keeper) (http.Handler, error) {
	return &paramsHandler{cfg: cfg, keeper: keeper}, nil
}

type paramsHandler struct {
	keeper scene.Keeper
	cfg    *Config
}

func (h *paramsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SceneID uuid.UUID `json:"sceneId"`
		Params  gp.Params `json:"params"`
	}

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

	if err := req.Params.Validate(); err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}

	st, err := h.keeper.SetParams(req.SceneID, req.Params)
	if err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, req.SceneID)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "set params error, %v"}`, err)
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
