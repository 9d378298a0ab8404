package fetch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracingFetcher struct {
	base   Fetcher
	tracer trace.Tracer
}

// NewTracingFetcher is a decorator for Fetcher that creates an
// OpenTelemetry trace span for every fetch. The underlying Fetcher may
// add events to the span that indicate which stage is entered.
func NewTracingFetcher(base Fetcher, tracerProvider trace.TracerProvider) Fetcher {
	return &tracingFetcher{
		base:   base,
		tracer: tracerProvider.Tracer("github.com/buildbarn/bb-fetch/pkg/fetch"),
	}
}

func (f *tracingFetcher) Fetch(ctx context.Context, repositoryURL, internalPath, localDestination, revision string) error {
	ctxWithTracing, span := f.tracer.Start(ctx, "Fetcher.Fetch", trace.WithAttributes(
		attribute.String("repository_url", repositoryURL),
		attribute.String("internal_path", internalPath),
		attribute.String("local_destination", localDestination),
		attribute.String("revision", revision),
	))
	defer span.End()

	err := f.base.Fetch(ctxWithTracing, repositoryURL, internalPath, localDestination, revision)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return err
}
