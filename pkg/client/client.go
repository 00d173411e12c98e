// Package client provides the HTTP client used to call the API.
//
// Client implements the request.Sender interface on top of the standard
// net/http package and adds retries, tracing and telemetry.
// A custom client can be plugged in by implementing request.Sender.
//
// Requests are described by the immutable request.HTTPRequest,
// see the request.NewHTTPRequest function.
package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/eiadata/go-client/pkg/client/trace"
	"github.com/eiadata/go-client/pkg/client/trace/otel"
)

const telemetryAppName = "github.com/eiadata/go-client"

// Client is a configurable implementation of the request.Sender interface.
// The zero value is not usable, use the New function.
// All With* and And* methods return a modified clone, the original value stays unchanged.
type Client struct {
	transport      http.RoundTripper
	baseURL        *url.URL
	header         http.Header
	retry          RetryConfig
	traceFactories []trace.Factory
	tracer         otelTrace.Tracer
}

// New creates a new Client with the default transport and retry.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header), retry: DefaultRetry()}
	c.header.Set("User-Agent", "eia-go-client")
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithBaseURL returns a clone of the Client with the base url set.
// Relative request urls are resolved against it.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	// Exactly one trailing slash, so Parse joins the paths with one separator
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/"
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with the user agent set.
func (c Client) WithUserAgent(v string) Client {
	c.header = c.header.Clone()
	c.header.Set("User-Agent", v)
	return c
}

// WithHeader returns a clone of the Client with a common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with the HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil || transport == http.RoundTripper(nil) {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithRetry returns a clone of the Client with the retry config set.
func (c Client) WithRetry(retry RetryConfig) Client {
	c.retry = retry
	return c
}

// AndTrace returns a clone of the Client with an additional trace.Factory.
// Hooks from the last registered factory are called first.
func (c Client) AndTrace(fn trace.Factory) Client {
	c.traceFactories = append(c.traceFactories[:len(c.traceFactories):len(c.traceFactories)], fn)
	return c
}

// WithTelemetry returns a clone of the Client with OpenTelemetry tracing and metrics enabled.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Client {
	if tracerProvider != nil {
		c.tracer = tracerProvider.Tracer(telemetryAppName)
	}
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// Tracer returns the tracer set by the WithTelemetry method, or nil.
// The request.APIRequest uses it to wrap a logical operation to a span.
func (c Client) Tracer() otelTrace.Tracer {
	return c.tracer
}
