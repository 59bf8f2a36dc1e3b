// Package integration provides a small typed client of the service API,
// used by the demo seeder and end to end checks.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/httputil"
	"github.com/go-gpviz/gpviz/internal/scene"
)

type prefixRoundTripper struct {
	addr string
	rt   http.RoundTripper
}

func (p *prefixRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	u := r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if u.Host == "" {
		u.Host = p.addr
	}

	return p.rt.RoundTrip(r)
}

type Option func(*Client)

// WithHTTPConfig applies the authorization scheme of the config to the
// transport.
func WithHTTPConfig(cfg httputil.ClientConfig) Option {
	return func(c *Client) {
		c.httpCfg = cfg
	}
}

func NewClient(addr string, opts ...Option) (*Client, error) {
	c := &Client{addr: addr}
	for _, f := range opts {
		f(c)
	}

	rt, err := httputil.NewRoundTripper(c.httpCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build transport: %w", err)
	}
	c.client = &http.Client{Transport: &prefixRoundTripper{addr: addr, rt: rt}}
	return c, nil
}

type Client struct {
	addr    string
	httpCfg httputil.ClientConfig
	client  *http.Client
}

func (c *Client) CreateScene(ctx context.Context, params *gp.Params) (scene.State, error) {
	var st scene.State
	req := struct {
		Params *gp.Params `json:"params,omitempty"`
	}{Params: params}
	if err := c.post(ctx, "/scene", &req, &st); err != nil {
		return scene.State{}, fmt.Errorf("create scene: %w", err)
	}
	return st, nil
}

func (c *Client) SceneState(ctx context.Context, id uuid.UUID) (scene.State, error) {
	var st scene.State
	if err := c.get(ctx, "/scene?scene_id="+url.QueryEscape(id.String()), &st); err != nil {
		return scene.State{}, fmt.Errorf("get scene: %w", err)
	}
	return st, nil
}

func (c *Client) DeleteScene(ctx context.Context, id uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, "/scene?scene_id="+url.QueryEscape(id.String()), nil)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete scene: status %d: %s", resp.StatusCode, respError(resp))
	}
	return nil
}

func (c *Client) ClearScene(ctx context.Context, id uuid.UUID) (scene.State, error) {
	var st scene.State
	req := struct {
		SceneID uuid.UUID `json:"sceneId"`
	}{SceneID: id}
	if err := c.post(ctx, "/scene/clear", &req, &st); err != nil {
		return scene.State{}, fmt.Errorf("clear scene: %w", err)
	}
	return st, nil
}

func (c *Client) SetParams(ctx context.Context, id uuid.UUID, params gp.Params) (scene.State, error) {
	var st scene.State
	req := struct {
		SceneID uuid.UUID `json:"sceneId"`
		Params  gp.Params `json:"params"`
	}{SceneID: id, Params: params}
	if err := c.post(ctx, "/scene/params", &req, &st); err != nil {
		return scene.State{}, fmt.Errorf("set params: %w", err)
	}
	return st, nil
}

func (c *Client) Observe(ctx context.Context, r ObserveRequest) (scene.State, error) {
	var st scene.State
	if err := c.post(ctx, "/observe", &r, &st); err != nil {
		return scene.State{}, fmt.Errorf("observe: %w", err)
	}
	return st, nil
}

func (c *Client) Posterior(ctx context.Context, r PosteriorRequest) (PosteriorResponse, error) {
	var out PosteriorResponse
	if err := c.post(ctx, "/posterior", &r, &out); err != nil {
		return PosteriorResponse{}, fmt.Errorf("posterior: %w", err)
	}
	return out, nil
}

func (c *Client) Sample(ctx context.Context, r SampleRequest) (SampleResponse, error) {
	var out SampleResponse
	if err := c.post(ctx, "/sample", &r, &out); err != nil {
		return SampleResponse{}, fmt.Errorf("sample: %w", err)
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("unable marshal request: %w", err)
	}

	reader := bytes.NewReader(b)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, reader)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, respError(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, respError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable decode response: %w", err)
	}
	return nil
}

func respError(resp *http.Response) string {
	b, err := ioutil.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return resp.Status
	}
	return string(bytes.TrimSpace(b))
}
