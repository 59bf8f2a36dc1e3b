// Package setup assembles the service environment from the process
// configuration. Components advertise themselves through config provider
// interfaces, their presence on the config decides what gets built.
package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/logging"
	"github.com/go-gpviz/gpviz/internal/preset"
	"github.com/go-gpviz/gpviz/internal/scene"
	"github.com/go-gpviz/gpviz/internal/srvenv"
	"github.com/go-gpviz/gpviz/internal/watch"
)

type EngineConfigProvider interface {
	EngineConfig() *gp.Config
}

type SceneConfigProvider interface {
	SceneConfig() *scene.Config
}

type WatchConfigProvider interface {
	WatchConfig() *watch.Config
}

type PresetConfigProvider interface {
	PresetConfig() *preset.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var engine *gp.Engine
	if engineConfigProvider, ok := config.(EngineConfigProvider); ok {
		logger.Info("configuring engine")
		cfg := engineConfigProvider.EngineConfig()
		if err := envconfig.Process("", cfg); err != nil {
			return nil, fmt.Errorf("dont process engine env: %w", err)
		}
		engine = gp.New(gp.WithJitter(cfg.Jitter))
		serverEnvOpts = append(serverEnvOpts, srvenv.WithEngine(engine))
	}

	if watchConfigProvider, ok := config.(WatchConfigProvider); ok {
		logger.Info("configuring watch hub")
		provideFn, err := ProvideWatcherFor(watchConfigProvider)
		if err != nil {
			return nil, fmt.Errorf("unable create watcher provide function: %v", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithWatcher(provideFn))
	}

	if sceneConfigProvider, ok := config.(SceneConfigProvider); ok {
		logger.Info("configuring scene manager")
		provideFn, err := ProvideScenesFor(sceneConfigProvider, engine)
		if err != nil {
			return nil, fmt.Errorf("unable create scene provide function: %v", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithScenes(provideFn))
	}

	if presetConfigProvider, ok := config.(PresetConfigProvider); ok {
		logger.Info("configuring presets")
		cfg := presetConfigProvider.PresetConfig()
		if err := envconfig.Process("", cfg); err != nil {
			return nil, fmt.Errorf("dont process preset env: %w", err)
		}
		presets, err := preset.Load(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("unable to load presets: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPresets(presets))
	}

	return srvenv.New(serverEnvOpts...), nil
}

func ProvideWatcherFor(provider WatchConfigProvider) (watch.ProvideFn, error) {
	cfg := provider.WatchConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process watch env: %w", err)
	}
	return func(shutdownCh chan<- error) (watch.Manager, error) {
		return watch.New(
			shutdownCh,
			watch.WithFlushInterval(cfg.FlushInterval),
		)
	}, nil
}

func ProvideScenesFor(provider SceneConfigProvider, engine *gp.Engine) (scene.ProvideFn, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine instance is not created")
	}
	cfg := provider.SceneConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process scene env: %w", err)
	}
	return func(notifier watch.Manager, shutdownCh chan<- error) (scene.Manager, error) {
		return scene.New(
			engine,
			notifier,
			shutdownCh,
			scene.WithMaxScenes(cfg.MaxScenes),
			scene.WithTTL(cfg.TTL),
			scene.WithRebuildTime(cfg.RebuildTime),
			scene.WithHistoryCap(cfg.HistoryCap),
			scene.WithMaxObservations(cfg.MaxObservations),
		)
	}, nil
}
