package otel

import (
	"context"
	"sync"

	events "github.com/hanpama/graphrow/internal/events"
	opid "github.com/hanpama/graphrow/internal/opid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches event subscribers that open a
// span per operation, with transport and reconcile spans parented under it.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("graphrow")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer  trace.Tracer
	opSpans sync.Map // opid.ID -> trace.Span
	reqSpan sync.Map // opid.ID -> trace.Span
	recSpan sync.Map // opid.ID -> trace.Span
}

func (s *subscriber) register() {
	events.OperationStarts.Subscribe(func(ctx context.Context, e events.OperationStart) {
		id, _ := opid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "graphql.operation")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.opSpans.Store(id, span)
	})

	events.OperationFinishes.Subscribe(func(ctx context.Context, e events.OperationFinish) {
		id, _ := opid.FromContext(ctx)
		v, ok := s.opSpans.LoadAndDelete(id)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	events.RequestStarts.Subscribe(func(ctx context.Context, e events.RequestStart) {
		id, _ := opid.FromContext(ctx)
		parent := ctx
		if v, ok := s.opSpans.Load(id); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "http.request")
		span.SetAttributes(attribute.String("http.url", e.URL))
		s.reqSpan.Store(id, span)
	})

	events.RequestFinishes.Subscribe(func(ctx context.Context, e events.RequestFinish) {
		id, _ := opid.FromContext(ctx)
		v, ok := s.reqSpan.LoadAndDelete(id)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	events.ReconcileStarts.Subscribe(func(ctx context.Context, e events.ReconcileStart) {
		id, _ := opid.FromContext(ctx)
		parent := ctx
		if v, ok := s.opSpans.Load(id); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "store.reconcile")
		span.SetAttributes(attribute.String("graphql.operation.name", e.OperationName))
		s.recSpan.Store(id, span)
	})

	events.ReconcileFinishes.Subscribe(func(ctx context.Context, e events.ReconcileFinish) {
		id, _ := opid.FromContext(ctx)
		v, ok := s.recSpan.LoadAndDelete(id)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(
			attribute.Int("store.merges", e.Merges),
			attribute.Int("store.deletes", e.Deletes),
			attribute.Int("store.diag.errors", e.Errors),
			attribute.Int("store.diag.warnings", e.Warnings),
		)
		span.End()
	})
}
