package memjoy

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/efritz/memjoy"

func newTracer(provider trace.TracerProvider) trace.Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return provider.Tracer(instrumentationName)
}

func (c *client) startSpan(ctx context.Context, verb Verb, keys []string) (context.Context, trace.Span) {
	return c.tracer.Start(
		ctx,
		"memcached."+string(verb),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "memcached"),
			attribute.String("db.operation", string(verb)),
			attribute.String("memjoy.keys", strings.Join(keys, " ")),
		),
	)
}

func endSpan(span trace.Span, attempts int, err error) {
	span.SetAttributes(attribute.Int("memjoy.attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
