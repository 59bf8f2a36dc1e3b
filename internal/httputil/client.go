package httputil

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

func defaultTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       5 * time.Minute,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
}

// NewRoundTripper wraps base with the authorization scheme the config asks
// for. A nil base starts from the package transport defaults, a zero config
// leaves the transport untouched.
func NewRoundTripper(cfg ClientConfig, base http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate http client config: %w", err)
	}
	if base == nil {
		base = defaultTransport()
	}

	switch {
	case len(cfg.BearerToken) > 0:
		return NewBearerAuthRoundTripper(cfg.BearerToken, base), nil
	case len(cfg.BasicUser) > 0:
		return NewBasicAuthRoundTripper(cfg.BasicUser, cfg.BasicPass, base), nil
	default:
		return base, nil
	}
}

// authRoundTripper sets a prepared Authorization header on each request
// unless the request already carries one.
type authRoundTripper struct {
	authorization string
	rt            http.RoundTripper
}

func (a *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(req.Header.Get("Authorization")) == 0 {
		req.Header.Set("Authorization", a.authorization)
	}
	return a.rt.RoundTrip(req)
}

func NewBearerAuthRoundTripper(token string, rt http.RoundTripper) http.RoundTripper {
	return &authRoundTripper{authorization: "Bearer " + token, rt: rt}
}

func NewBasicAuthRoundTripper(username, password string, rt http.RoundTripper) http.RoundTripper {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + strings.TrimSpace(password)))
	return &authRoundTripper{authorization: "Basic " + creds, rt: rt}
}
