// Package telemetry wires the opencensus measures of the service and the
// prometheus pull exporter mounted on /metrics.
package telemetry

import (
	"context"
	"fmt"
	"time"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyOp     = tag.MustNewKey("operation")
	KeyKernel = tag.MustNewKey("kernel")
)

var (
	mComputeLatency = stats.Float64(
		"gpviz/compute_latency",
		"Latency of engine computations",
		stats.UnitMilliseconds,
	)
	mFactorizationFailures = stats.Int64(
		"gpviz/factorization_failures",
		"Covariance factorizations rejected as not positive definite",
		stats.UnitDimensionless,
	)
	mObservationsAdded = stats.Int64(
		"gpviz/observations_added",
		"Observations appended to scenes",
		stats.UnitDimensionless,
	)
	mSamplesDrawn = stats.Int64(
		"gpviz/samples_drawn",
		"Posterior curves drawn",
		stats.UnitDimensionless,
	)
	mScenesLive = stats.Int64(
		"gpviz/scenes_live",
		"Scenes currently held in memory",
		stats.UnitDimensionless,
	)
)

var views = []*view.View{
	{
		Name:        "gpviz/compute_latency",
		Description: "Latency of engine computations",
		Measure:     mComputeLatency,
		TagKeys:     []tag.Key{KeyOp, KeyKernel},
		Aggregation: view.Distribution(0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000),
	},
	{
		Name:        "gpviz/factorization_failures",
		Description: "Covariance factorizations rejected as not positive definite",
		Measure:     mFactorizationFailures,
		TagKeys:     []tag.Key{KeyOp},
		Aggregation: view.Count(),
	},
	{
		Name:        "gpviz/observations_added",
		Description: "Observations appended to scenes",
		Measure:     mObservationsAdded,
		Aggregation: view.Sum(),
	},
	{
		Name:        "gpviz/samples_drawn",
		Description: "Posterior curves drawn",
		Measure:     mSamplesDrawn,
		TagKeys:     []tag.Key{KeyKernel},
		Aggregation: view.Count(),
	},
	{
		Name:        "gpviz/scenes_live",
		Description: "Scenes currently held in memory",
		Measure:     mScenesLive,
		Aggregation: view.LastValue(),
	},
}

// RegisterViews registers every service view. It must run once before
// recording.
func RegisterViews() error {
	if err := view.Register(views...); err != nil {
		return fmt.Errorf("unable to register views: %w", err)
	}
	return nil
}

// NewExporter creates the prometheus exporter and attaches it to the view
// pipeline. The exporter serves the scrape endpoint.
func NewExporter() (*ocprom.Exporter, error) {
	exporter, err := ocprom.NewExporter(ocprom.Options{})
	if err != nil {
		return nil, fmt.Errorf("unable to create prometheus exporter: %w", err)
	}
	view.RegisterExporter(exporter)
	return exporter, nil
}

func RecordCompute(ctx context.Context, op, kernelType string, elapsed time.Duration) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(KeyOp, op),
		tag.Upsert(KeyKernel, kernelType),
	}, mComputeLatency.M(float64(elapsed)/float64(time.Millisecond)))
}

func RecordFactorizationFailure(ctx context.Context, op string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(KeyOp, op),
	}, mFactorizationFailures.M(1))
}

func RecordObservations(ctx context.Context, n int) {
	stats.Record(ctx, mObservationsAdded.M(int64(n)))
}

func RecordSample(ctx context.Context, kernelType string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(KeyKernel, kernelType),
	}, mSamplesDrawn.M(1))
}

func RecordScenesLive(ctx context.Context, n int) {
	stats.Record(ctx, mScenesLive.M(int64(n)))
}
