package invoker

import (
	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/metrics"
	"github.com/grussorusso/faasrunner/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/context"
)

type instrumented struct {
	next   Invoker
	target function.Target
}

// Instrument wraps inv so that every call is counted and traced.
func Instrument(inv Invoker, target function.Target) Invoker {
	return &instrumented{next: inv, target: target}
}

func (i *instrumented) Invoke(ctx context.Context, payload experiment.Payload) (string, float64, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("platform", i.target.Kind.String()),
		attribute.String("endpoint", i.target.Endpoint))

	out, elapsed, err := i.next.Invoke(ctx, payload)
	metrics.ObserveInvocation(i.target.Kind.String(), err == nil, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Float64("elapsed_ms", elapsed))
	}
	return out, elapsed, err
}
