package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-gpviz/gpviz/internal/buildinfo"
	gpviz "github.com/go-gpviz/gpviz/internal/config"
	"github.com/go-gpviz/gpviz/internal/logging"
	"github.com/go-gpviz/gpviz/internal/observe"
	"github.com/go-gpviz/gpviz/internal/posterior"
	"github.com/go-gpviz/gpviz/internal/preset"
	"github.com/go-gpviz/gpviz/internal/sample"
	"github.com/go-gpviz/gpviz/internal/scenehttp"
	"github.com/go-gpviz/gpviz/internal/server"
	"github.com/go-gpviz/gpviz/internal/setup"
	"github.com/go-gpviz/gpviz/internal/shutdown"
	"github.com/go-gpviz/gpviz/internal/telemetry"
	"github.com/go-gpviz/gpviz/internal/watch"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintln(os.Stdout, buildinfo.Banner())

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx, done); err != nil {
		logger.Fatal(err)
	}

	defer done()
}

func run(ctx context.Context, cancel func()) error {
	// the watch flusher and the scene keeper both report in on shutdown
	const shutdownCount = 2

	config := gpviz.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}

	shutdownCh := make(chan error, shutdownCount)
	watcher, err := env.ProvideWatcher()(shutdownCh)
	if err != nil {
		return fmt.Errorf("watcher provider function error: %w", err)
	}
	scenes, err := env.ProvideScenes()(watcher, shutdownCh)
	if err != nil {
		return fmt.Errorf("scene provider function error: %w", err)
	}

	if err := watcher.Run(ctx); err != nil {
		return fmt.Errorf("watch.Run: %w", err)
	}
	if err := scenes.Run(ctx); err != nil {
		return fmt.Errorf("scene.Run: %w", err)
	}

	if err := telemetry.RegisterViews(); err != nil {
		return fmt.Errorf("telemetry.RegisterViews: %w", err)
	}
	exporter, err := telemetry.NewExporter()
	if err != nil {
		return fmt.Errorf("telemetry.NewExporter: %w", err)
	}

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	mux := http.NewServeMux()

	sceneHandler, err := scenehttp.NewHandler(&config.SceneAPI, scenes)
	if err != nil {
		return fmt.Errorf("scenehttp.NewHandler: %w", err)
	}
	clearHandler, err := scenehttp.NewClearHandler(&config.SceneAPI, scenes)
	if err != nil {
		return fmt.Errorf("scenehttp.NewClearHandler: %w", err)
	}
	paramsHandler, err := scenehttp.NewParamsHandler(&config.SceneAPI, scenes)
	if err != nil {
		return fmt.Errorf("scenehttp.NewParamsHandler: %w", err)
	}
	observeHandler, err := observe.NewHandler(&config.Observe, scenes)
	if err != nil {
		return fmt.Errorf("observe.NewHandler: %w", err)
	}
	posteriorHandler, err := posterior.NewHandler(&config.Posterior, scenes)
	if err != nil {
		return fmt.Errorf("posterior.NewHandler: %w", err)
	}
	sampleHandler, err := sample.NewHandler(&config.Sample, scenes)
	if err != nil {
		return fmt.Errorf("sample.NewHandler: %w", err)
	}
	presetsHandler, err := preset.NewListHandler(&config.Preset, env.Presets())
	if err != nil {
		return fmt.Errorf("preset.NewListHandler: %w", err)
	}
	applyHandler, err := preset.NewApplyHandler(&config.Preset, env.Presets(), scenes)
	if err != nil {
		return fmt.Errorf("preset.NewApplyHandler: %w", err)
	}
	watchHandler, err := watch.NewHandler(&config.Watch, watcher)
	if err != nil {
		return fmt.Errorf("watch.NewHandler: %w", err)
	}

	mux.Handle("/scene", sceneHandler)
	mux.Handle("/scene/clear", clearHandler)
	mux.Handle("/scene/params", paramsHandler)
	mux.Handle("/observe", observeHandler)
	mux.Handle("/posterior", posteriorHandler)
	mux.Handle("/sample", sampleHandler)
	mux.Handle("/presets", presetsHandler)
	mux.Handle("/presets/apply", applyHandler)
	mux.Handle("/watch", watchHandler)
	mux.Handle("/metrics", exporter)
	mux.Handle("/health", server.HandleHealth(ctx))

	go func() {
		if err := srv.ServeHTTPHandler(ctx, mux); err != nil {
			cancel()
		}
	}()

	go func() {
		if err := http.ListenAndServe("0.0.0.0:8080", nil); err != nil {
			cancel()
		}
	}()

	return <-shutdownCh
}
