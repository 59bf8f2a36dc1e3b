package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-gpviz/gpviz/internal/logging"
)

// HandleHealth returns the liveness endpoint.
func HandleHealth(ctx context.Context) http.Handler {
	logger := logging.FromContext(ctx)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
			_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status": "ok"}`)
	})
}
