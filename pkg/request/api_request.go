package request

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	APIRequestSpanName     = "eia.go.api.client.request"
	apiRequestTracerCtxKey = ctxKey("api-request-tracer")
	// extra attributes for DataDog.
	attrSpanKind            = "span.kind"
	attrSpanKindValueClient = "client"
	attrSpanType            = "span.type"
	attrSpanTypeValueHTTP   = "http"
)

type ctxKey string

// APIRequest is one API operation with the response mapped to the generic
// type R, for example a fetch of one category or a submit of one series batch.
// Sending it emits the APIRequestSpanName span around the underlying HTTP
// request(s) when the sender has telemetry enabled.
type APIRequest[R Result] interface {
	// WithOnComplete registers a callback executed when the operation completes.
	WithOnComplete(func(ctx context.Context, result R, err error) error) APIRequest[R]
	// WithOnSuccess registers a callback executed when the operation completes without an error.
	WithOnSuccess(func(ctx context.Context, result R) error) APIRequest[R]
	// WithOnError registers a callback executed when the operation completes with an error.
	WithOnError(func(ctx context.Context, err error) error) APIRequest[R]
	// Send sends the operation and returns the mapped result.
	Send(ctx context.Context) (result R, err error)
	SendOrErr(ctx context.Context) error
}

// NewAPIRequest wraps one or more Sendable values (HTTPRequest or APIRequest)
// into an operation with the result mapped to the R type.
func NewAPIRequest[R Result](result R, requests ...Sendable) APIRequest[R] {
	if len(requests) == 0 {
		panic(fmt.Errorf("at least one request must be provided"))
	}
	return &apiRequest[R]{requests: requests, result: result}
}

// APIRequestTracerFromContext returns the tracer of the running API operation, if any.
func APIRequestTracerFromContext(ctx context.Context) (trace.Tracer, bool) {
	tracer, found := ctx.Value(apiRequestTracerCtxKey).(trace.Tracer)
	return tracer, found
}

type withTracer interface {
	Tracer() trace.Tracer
}

// apiRequest implements the generic APIRequest interface.
type apiRequest[R Result] struct {
	requests []Sendable
	after    []func(ctx context.Context, result R, err error) error
	result   R
}

func (r apiRequest[R]) WithOnComplete(fn func(ctx context.Context, result R, err error) error) APIRequest[R] {
	r.after = append(r.after, fn)
	return r
}

func (r apiRequest[R]) WithOnSuccess(fn func(ctx context.Context, result R) error) APIRequest[R] {
	r.after = append(r.after, func(ctx context.Context, result R, err error) error {
		if err == nil {
			err = fn(ctx, result)
		}
		return err
	})
	return r
}

func (r apiRequest[R]) WithOnError(fn func(ctx context.Context, err error) error) APIRequest[R] {
	r.after = append(r.after, func(ctx context.Context, result R, err error) error {
		if err != nil {
			err = fn(ctx, err)
		}
		return err
	})
	return r
}

func (r apiRequest[R]) Send(ctx context.Context) (result R, err error) {
	// Telemetry
	if tp, ok := r.requests[0].(withTracer); ok {
		if tracer := tp.Tracer(); tracer != nil {
			var resultType string
			if v := reflect.TypeOf(r.result); v != nil {
				resultType = v.String()
			}
			var span trace.Span
			ctx, span = tracer.Start(
				ctx,
				APIRequestSpanName,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String(attrSpanKind, attrSpanKindValueClient),
					attribute.String(attrSpanType, attrSpanTypeValueHTTP),
					attribute.Int("api.requests_count", len(r.requests)),
					attribute.String("api.result_type", resultType),
				),
			)
			ctx = context.WithValue(ctx, apiRequestTracerCtxKey, tracer)
			defer func() {
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				span.End()
			}()
		}
	}

	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return r.result, err
	}

	// Send requests in parallel
	wg := NewWaitGroup(ctx)
	for _, request := range r.requests {
		wg.Send(request)
	}
	err = wg.Wait()

	// Invoke "after" listeners
	for _, fn := range r.after {
		// Stop if context has been cancelled
		if err := ctx.Err(); err != nil {
			return r.result, err
		}
		err = fn(ctx, r.result, err)
	}

	return r.result, err
}

func (r apiRequest[R]) SendOrErr(ctx context.Context) error {
	_, err := r.Send(ctx)
	return err
}
