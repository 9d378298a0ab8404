package remote

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/status"
)

var (
	clientPrometheusMetrics sync.Once

	clientDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "remote",
			Name:      "client_duration_seconds",
			Help:      "Amount of time spent per operation against a remote store, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-3, 6, 2),
		},
		[]string{"backend", "operation", "grpc_code"})
)

type metricsClient struct {
	base  Client
	clock clock.Clock

	listChildren  prometheus.ObserverVec
	createItem    prometheus.ObserverVec
	uploadBytes   prometheus.ObserverVec
	downloadBytes prometheus.ObserverVec
	getItem       prometheus.ObserverVec
}

// NewMetricsClient is a decorator for Client that exposes Prometheus
// metrics on the duration and outcome of calls. Calls are labeled with
// the name of the backend.
func NewMetricsClient(base Client, clock clock.Clock, backend string) Client {
	clientPrometheusMetrics.Do(func() {
		prometheus.MustRegister(clientDurationSeconds)
	})

	return &metricsClient{
		base:  base,
		clock: clock,

		listChildren:  clientDurationSeconds.MustCurryWith(map[string]string{"backend": backend, "operation": "ListChildren"}),
		createItem:    clientDurationSeconds.MustCurryWith(map[string]string{"backend": backend, "operation": "CreateItem"}),
		uploadBytes:   clientDurationSeconds.MustCurryWith(map[string]string{"backend": backend, "operation": "UploadBytes"}),
		downloadBytes: clientDurationSeconds.MustCurryWith(map[string]string{"backend": backend, "operation": "DownloadBytes"}),
		getItem:       clientDurationSeconds.MustCurryWith(map[string]string{"backend": backend, "operation": "GetItem"}),
	}
}

func (c *metricsClient) observe(vec prometheus.ObserverVec, start time.Time, err error) {
	vec.WithLabelValues(status.Code(err).String()).Observe(c.clock.Now().Sub(start).Seconds())
}

func (c *metricsClient) ListChildren(ctx context.Context, parentID, name string) ([]Item, error) {
	start := c.clock.Now()
	items, err := c.base.ListChildren(ctx, parentID, name)
	c.observe(c.listChildren, start, err)
	return items, err
}

func (c *metricsClient) CreateItem(ctx context.Context, parentID, name string, kind ItemKind) (Item, error) {
	start := c.clock.Now()
	item, err := c.base.CreateItem(ctx, parentID, name, kind)
	c.observe(c.createItem, start, err)
	return item, err
}

func (c *metricsClient) UploadBytes(ctx context.Context, item Item, r io.Reader) error {
	start := c.clock.Now()
	err := c.base.UploadBytes(ctx, item, r)
	c.observe(c.uploadBytes, start, err)
	return err
}

// DownloadBytes only measures the time to obtain the stream, as the
// caller controls how quickly it is consumed.
func (c *metricsClient) DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error) {
	start := c.clock.Now()
	r, err := c.base.DownloadBytes(ctx, id)
	c.observe(c.downloadBytes, start, err)
	return r, err
}

func (c *metricsClient) GetItem(ctx context.Context, id string) (Item, error) {
	start := c.clock.Now()
	item, err := c.base.GetItem(ctx, id)
	c.observe(c.getItem, start, err)
	return item, err
}
