package watch

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/go-gpviz/gpviz/internal/httputil"
	"github.com/go-gpviz/gpviz/internal/logging"
)

// NewHandler returns the websocket endpoint streaming coalesced change
// events for one scene, or for every scene when scene_id is omitted.
func NewHandler(cfg *Config, hub Manager) (http.Handler, error) {
	return &handler{
		cfg: cfg,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 1024,
			// the canvas client is served from its own origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

type handler struct {
	cfg      *Config
	hub      Manager
	upgrader websocket.Upgrader
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	sceneID := uuid.Nil
	if raw := r.URL.Query().Get("scene_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "malformed scene id %q"}`, raw)
			return
		}
		sceneID = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debugf("watch: unable to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(sceneID)
	defer sub.Close()

	// the read side only detects the peer going away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	pingTicker := time.NewTicker(h.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case recv, ok := <-sub.Pull():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteJSON(recv.(Event)); err != nil {
				logger.Debugf("watch: unable to write event: %v", err)
				return
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
