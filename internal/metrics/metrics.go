// Package metrics defines the opencensus measures recorded while searching,
// cross-validating and classifying, and exports them to prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

type Config struct {
	Enabled   bool   `envconfig:"ELENS_METRICS_ENABLED" default:"true"`
	Namespace string `envconfig:"ELENS_METRICS_NAMESPACE" default:"elens"`
}

var (
	KeyClassifier = mustKey("classifier")
	KeyStage      = mustKey("stage")

	DistanceCount  = stats.Int64("elens/distance_count", "Elastic distances computed", stats.UnitDimensionless)
	PrunedCount    = stats.Int64("elens/pruned_count", "Candidates rejected by a lower bound", stats.UnitDimensionless)
	AbandonedCount = stats.Int64("elens/abandoned_count", "Distances abandoned early", stats.UnitDimensionless)
	StageLatency   = stats.Float64("elens/stage_latency", "Time spent in a fold, search or build stage", stats.UnitMilliseconds)
	ClassifyCount  = stats.Int64("elens/classify_count", "Sequences classified", stats.UnitDimensionless)
)

var latencyBounds = []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000, 300000}

var Views = []*view.View{
	{
		Name:        "elens/distance_count",
		Description: "Elastic distances computed",
		Measure:     DistanceCount,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{KeyClassifier},
	},
	{
		Name:        "elens/pruned_count",
		Description: "Candidates rejected by a lower bound",
		Measure:     PrunedCount,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{KeyClassifier},
	},
	{
		Name:        "elens/abandoned_count",
		Description: "Distances abandoned early",
		Measure:     AbandonedCount,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{KeyClassifier},
	},
	{
		Name:        "elens/stage_latency",
		Description: "Time spent in a fold, search or build stage",
		Measure:     StageLatency,
		Aggregation: view.Distribution(latencyBounds...),
		TagKeys:     []tag.Key{KeyClassifier, KeyStage},
	},
	{
		Name:        "elens/classify_count",
		Description: "Sequences classified",
		Measure:     ClassifyCount,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyClassifier},
	},
}

func mustKey(name string) tag.Key {
	k, err := tag.NewKey(name)
	if err != nil {
		panic(fmt.Sprintf("metrics: tag key %q: %v", name, err))
	}
	return k
}

// Register registers the views and returns the prometheus exporter serving
// them.
func Register(cfg *Config) (*prometheus.Exporter, error) {
	if err := view.Register(Views...); err != nil {
		return nil, fmt.Errorf("register views: %w", err)
	}
	pe, err := prometheus.NewExporter(prometheus.Options{Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	view.RegisterExporter(pe)
	return pe, nil
}

func tagged(ctx context.Context, classifier string) context.Context {
	tctx, err := tag.New(ctx, tag.Upsert(KeyClassifier, classifier))
	if err != nil {
		return ctx
	}
	return tctx
}

// RecordSearch records the work of nearest neighbour searches.
func RecordSearch(ctx context.Context, classifier string, distances, pruned, abandoned int64) {
	stats.Record(tagged(ctx, classifier),
		DistanceCount.M(distances),
		PrunedCount.M(pruned),
		AbandonedCount.M(abandoned),
	)
}

// RecordStage records the duration of one stage of a classifier.
func RecordStage(ctx context.Context, classifier, stage string, d time.Duration) {
	ctx = tagged(ctx, classifier)
	if tctx, err := tag.New(ctx, tag.Upsert(KeyStage, stage)); err == nil {
		ctx = tctx
	}
	stats.Record(ctx, StageLatency.M(float64(d)/float64(time.Millisecond)))
}

func RecordClassify(ctx context.Context, classifier string) {
	stats.Record(tagged(ctx, classifier), ClassifyCount.M(1))
}
