// The gpviz command seeds a running service with demo scenes: noisy sine
// observations, a posterior render and a handful of sample curves. It is
// the quickest way to see the whole pipeline move.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/go-gpviz/gpviz/internal/buildinfo"
	"github.com/go-gpviz/gpviz/internal/httputil"
	"github.com/go-gpviz/gpviz/internal/integration"
	"github.com/go-gpviz/gpviz/internal/logging"
	"github.com/go-gpviz/gpviz/internal/shutdown"
	"github.com/go-gpviz/gpviz/pkg/math/randn"
	"github.com/go-gpviz/gpviz/pkg/rworker"
)

type Config struct {
	Addr        string        `envconfig:"GPVIZ_CLIENT_ADDR" default:"127.0.0.1:8878"`
	Scenes      int           `envconfig:"GPVIZ_CLIENT_SCENES" default:"1"`
	Points      int           `envconfig:"GPVIZ_CLIENT_POINTS" default:"12"`
	Samples     int           `envconfig:"GPVIZ_CLIENT_SAMPLES" default:"5"`
	XMin        float64       `envconfig:"GPVIZ_CLIENT_XMIN" default:"-5"`
	XMax        float64       `envconfig:"GPVIZ_CLIENT_XMAX" default:"5"`
	Concurrency int           `envconfig:"GPVIZ_CLIENT_CONCURRENCY" default:"4"`
	Timeout     time.Duration `envconfig:"GPVIZ_CLIENT_TIMEOUT" default:"30s"`
	Auth        httputil.ClientConfig
}

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintln(os.Stdout, buildinfo.Banner())

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx); err != nil {
		logger.Fatal(err)
	}

	defer done()
}

func run(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	client, err := integration.NewClient(config.Addr, integration.WithHTTPConfig(config.Auth))
	if err != nil {
		return fmt.Errorf("integration.NewClient: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service is not healthy: %w", err)
	}

	normal := randn.New(nil)

	var wg sync.WaitGroup
	rate := make(chan struct{}, config.Concurrency)
	errCh := make(chan error, config.Scenes)
	for i := 0; i < config.Scenes; i++ {
		i := i
		rworker.Job(ctx, &wg, func(ctx context.Context) error {
			if err := seed(ctx, client, &config, normal); err != nil {
				return fmt.Errorf("seed scene %d: %w", i, err)
			}
			return nil
		}, rate, errCh)
	}
	wg.Wait()

	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}

	logger.Infof("seeded %d scenes", config.Scenes)
	return nil
}

// seed walks one scene through the whole pipeline: create, observe a noisy
// sine, render the posterior and draw a few curves.
func seed(ctx context.Context, client *integration.Client, cfg *Config, normal *randn.Normal) error {
	logger := logging.FromContext(ctx)

	st, err := client.CreateScene(ctx, nil)
	if err != nil {
		return err
	}

	points := make([]integration.ObservePoint, 0, cfg.Points)
	for i := 0; i < cfg.Points; i++ {
		x := normal.Uniform(cfg.XMin, cfg.XMax)
		y := math.Sin(x) + 0.1*normal.Draw()
		points = append(points, integration.ObservePoint{X: x, Y: y})
	}
	if _, err := client.Observe(ctx, integration.ObserveRequest{SceneID: st.ID, Points: points}); err != nil {
		return err
	}

	post, err := client.Posterior(ctx, integration.PosteriorRequest{SceneID: st.ID, XMin: cfg.XMin, XMax: cfg.XMax})
	if err != nil {
		return err
	}

	for i := 0; i < cfg.Samples; i++ {
		if _, err := client.Sample(ctx, integration.SampleRequest{SceneID: st.ID, XMin: cfg.XMin, XMax: cfg.XMax}); err != nil {
			return err
		}
	}

	if post.Curve != nil {
		logger.Infof(
			"scene %v: posterior over %d points, mean avg: %.4f, variance max: %.4f",
			st.ID, len(post.Curve.X), post.Curve.Mean.Mean(), post.Curve.Variance.Max(),
		)
	}
	return nil
}
