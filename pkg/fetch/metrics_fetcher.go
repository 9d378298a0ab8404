package fetch

import (
	"context"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/status"
)

var (
	fetcherPrometheusMetrics sync.Once

	fetcherDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Amount of time spent fetching outputs from repositories, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-3, 6, 2),
		},
		[]string{"grpc_code"})
)

type metricsFetcher struct {
	base  Fetcher
	clock clock.Clock
}

// NewMetricsFetcher is a decorator for Fetcher that exposes Prometheus
// metrics on the duration and outcome of fetches.
func NewMetricsFetcher(base Fetcher, clock clock.Clock) Fetcher {
	fetcherPrometheusMetrics.Do(func() {
		prometheus.MustRegister(fetcherDurationSeconds)
	})

	return &metricsFetcher{
		base:  base,
		clock: clock,
	}
}

func (f *metricsFetcher) Fetch(ctx context.Context, repositoryURL, internalPath, localDestination, revision string) error {
	start := f.clock.Now()
	err := f.base.Fetch(ctx, repositoryURL, internalPath, localDestination, revision)
	fetcherDurationSeconds.WithLabelValues(status.Code(err).String()).Observe(f.clock.Now().Sub(start).Seconds())
	return err
}
