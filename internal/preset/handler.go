package preset

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
)

const maxBodyBytes = 64 * 1024 * 1024

// NewListHandler returns the preset catalogue endpoint.
func NewListHandler(cfg *Config, presets List) (http.Handler, error) {
	return &listHandler{cfg: cfg, presets: presets}, nil
}

type listHandler struct {
	cfg     *Config
	presets List
}

func (h *listHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	resp := struct {
		Presets List `json:"presets"`
	}{Presets: h.presets}

	bytes, err := json.Marshal(resp)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}

// NewApplyHandler returns the endpoint that copies a preset onto a scene.
func NewApplyHandler(cfg *Config, presets List, scenes scene.Keeper) (http.Handler, error) {
	return &applyHandler{cfg: cfg, presets: presets, scenes: scenes}, nil
}

type applyHandler struct {
	cfg     *Config
	presets List
	scenes  scene.Keeper
}

func (h *applyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SceneID uuid.UUID `json:"sceneId"`
		Name    string    `json:"name"`
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

	found, ok := h.presets.Find(req.Name)
	if !ok {
		httputil.RespBadRequest(ctx, w, `{"error": "unknown preset %q"}`, req.Name)
		return
	}

	st, err := h.scenes.SetParams(req.SceneID, found.Params)
	if err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			httputil.RespNotFound(ctx, w, `{"error": "scene %v is not found"}`, req.SceneID)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "apply preset error, %v"}`, err)
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
