package auth

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

var (
	meter  = otel.Meter("yggdrasil/auth")
	tracer = otel.Tracer("yggdrasil/auth")
)

var (
	requestsOnce sync.Once
	requests     metric.Int64Counter
)

// recordRequest counts a finished request to the Yggdrasil servers.
func recordRequest(ctx context.Context, operation string, err error) {
	requestsOnce.Do(func() {
		var mErr error
		requests, mErr = meter.Int64Counter("yggdrasil.auth.requests",
			metric.WithDescription("The number of requests to the Yggdrasil servers by operation and outcome"),
			metric.WithUnit("{request}"),
		)
		if mErr != nil {
			otel.Handle(mErr)
			requests = noop.Int64Counter{}
		}
	})
	requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome(err)),
	))
}

// outcome classifies err for metrics.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	for _, o := range []struct {
		err  error
		name string
	}{
		{ErrInvalidState, "invalid_state"},
		{ErrAuthenticationFailed, "authentication_failed"},
		{ErrJoinRejected, "join_rejected"},
		{ErrRejected, "rejected"},
		{ErrInvalidPublicKey, "invalid_public_key"},
		{ErrEncryptionFailed, "encryption_failed"},
		{ErrRandomSource, "random_source"},
		{ErrMalformedResponse, "malformed_response"},
		{context.Canceled, "canceled"},
	} {
		if errors.Is(err, o.err) {
			return o.name
		}
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "transport"
	}
	return "error"
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
	}
	span.End()
}
