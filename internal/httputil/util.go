package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-gpviz/gpviz/internal/logging"
)

// DecodeErr maps a json decode failure onto the matching error response.
func DecodeErr(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		syntaxErr    *json.SyntaxError
		unmarshalErr *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		RespBadRequest(ctx, w, `{"error": "body must not be empty"}`)
	case errors.Is(err, io.ErrUnexpectedEOF):
		RespBadRequest(ctx, w, `{"error": "malformed json"}`)
	case errors.As(err, &syntaxErr):
		RespBadRequest(ctx, w, `{"error": "malformed json at position %v"}`, syntaxErr.Offset)
	case errors.As(err, &unmarshalErr):
		RespBadRequest(ctx, w, `{"error": "invalid value %v at position %v"}`, unmarshalErr.Field, unmarshalErr.Offset)
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		RespBadRequest(ctx, w, `{"error": "unknown field %s"}`, strings.TrimPrefix(err.Error(), "json: unknown field "))
	case err.Error() == "http: request body too large":
		logging.FromContext(ctx).Debug(err.Error())
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	default:
		RespInternalError(ctx, w, `{"error": "failed to decode json %v"}`, err)
	}
}

func RespBadRequest(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	respond(ctx, w, http.StatusBadRequest, format, args...)
}

func RespNotFound(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	respond(ctx, w, http.StatusNotFound, format, args...)
}

// RespUnprocessable reports a request that was well formed but cannot be
// served, such as a covariance that failed to factorize.
func RespUnprocessable(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	respond(ctx, w, http.StatusUnprocessableEntity, format, args...)
}

// RespInternalError logs the cause and hides it from the response body.
func RespInternalError(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	logging.FromContext(ctx).Errorf(format, args...)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func respond(ctx context.Context, w http.ResponseWriter, status int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logging.FromContext(ctx).Debug(msg)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
