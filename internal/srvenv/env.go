package srvenv

import (
	"context"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/preset"
	"github.com/go-gpviz/gpviz/internal/scene"
	"github.com/go-gpviz/gpviz/internal/watch"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	engine  *gp.Engine
	watcher watch.ProvideFn
	scenes  scene.ProvideFn
	presets preset.List
}

func (s *SrvEnv) Engine() *gp.Engine {
	return s.engine
}

func (s *SrvEnv) ProvideWatcher() watch.ProvideFn {
	return s.watcher
}

func (s *SrvEnv) ProvideScenes() scene.ProvideFn {
	return s.scenes
}

func (s *SrvEnv) Presets() preset.List {
	return s.presets
}

func WithEngine(e *gp.Engine) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.engine = e
		return s
	}
}

func WithWatcher(fn watch.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.watcher = fn
		return s
	}
}

func WithScenes(fn scene.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.scenes = fn
		return s
	}
}

func WithPresets(list preset.List) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.presets = list
		return s
	}
}

// Close releases the held resources. Every current dependency lives in
// memory, the method exists for the shutdown path to stay uniform.
func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return nil
}
