package otel_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	export "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/eiadata/go-client/pkg/client"
	"github.com/eiadata/go-client/pkg/client/trace/otel"
	"github.com/eiadata/go-client/pkg/request"
)

const (
	testTraceID    = 0xabcd
	testSpanIDBase = 0x1000
)

type testIDGenerator struct {
	spanID uint16
}

func (g *testIDGenerator) NewIDs(ctx context.Context) (otelTrace.TraceID, otelTrace.SpanID) {
	traceID := toTraceID(testTraceID)
	return traceID, g.NewSpanID(ctx, traceID)
}

func (g *testIDGenerator) NewSpanID(_ context.Context, _ otelTrace.TraceID) otelTrace.SpanID {
	g.spanID++
	return toSpanID(testSpanIDBase + g.spanID)
}

func toTraceID(in uint16) otelTrace.TraceID { //nolint: unparam
	tmp := make([]byte, 16)
	binary.BigEndian.PutUint16(tmp, in)
	return *(*[16]byte)(tmp)
}

func toSpanID(in uint16) otelTrace.SpanID {
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint16(tmp, in)
	return *(*[8]byte)(tmp)
}

func TestTelemetry_MockedRequestWithRetry(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mocked responses (1x retry, OK)
	var traceParentHeader string
	attempt := 0
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://api.eia.gov/series/`, func(h *http.Request) (*http.Response, error) {
		attempt++
		traceParentHeader = h.Header.Get("Traceparent")
		switch attempt {
		case 1:
			return &http.Response{StatusCode: http.StatusLocked}, nil
		case 2:
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("OK"))}, nil
		default:
			panic(fmt.Errorf(`unexpected attempt "%d"`, attempt))
		}
	})

	// Setup tracing
	res, err := resource.New(ctx)
	assert.NoError(t, err)
	traceExporter := tracetest.NewInMemoryExporter()
	tracerProvider := trace.NewTracerProvider(
		trace.WithSyncer(traceExporter),
		trace.WithResource(res),
		trace.WithIDGenerator(&testIDGenerator{}),
	)

	// Setup metrics
	metricExporter, err := export.New()
	assert.NoError(t, err)
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metricExporter),
		metric.WithResource(res),
	)

	// Create client
	c := client.New().
		WithTransport(transport).
		WithBaseURL("https://api.eia.gov").
		WithRetry(client.RetryConfig{
			Condition:     client.DefaultRetryCondition(),
			Count:         3,
			WaitTimeStart: 1 * time.Millisecond,
			WaitTimeMax:   20 * time.Millisecond,
		}).
		WithTelemetry(
			tracerProvider,
			meterProvider,
			otel.WithRedactedHeaders("X-Api-Token"),
			otel.WithPropagators(propagation.TraceContext{}),
		)

	// Run request
	str := ""
	httpRequest := request.NewHTTPRequest(c).
		WithGet("series/").
		AndQueryParam("api_key", "my-secret").
		AndHeader("X-Api-Token", "my-secret").
		WithResult(&str)
	apiRequest := request.NewAPIRequest(&str, httpRequest)
	result, err := apiRequest.Send(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "OK", *result)

	// Assert spans
	spans := traceExporter.GetSpans()
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].SpanContext.SpanID().String() < spans[j].SpanContext.SpanID().String()
	})
	var spanNames []string
	for _, span := range spans {
		spanNames = append(spanNames, span.Name)

		// All spans must be finished!
		assert.NotZero(t, span.StartTime)
		assert.NotZero(t, span.EndTime)
	}
	assert.Equal(t, []string{
		"eia.go.api.client.request",
		"eia.go.http.client.request",
		"http.request",
		"eia.go.http.client.retry.delay",
		"http.request",
	}, spanNames)

	// Secret values must be masked
	clientSpan := spans[1]
	assert.Contains(t, clientSpan.Attributes, attribute.String("definition.params.query.api_key", "****"))
	httpSpan := spans[2]
	assert.Contains(t, httpSpan.Attributes, attribute.String("http.header.x-api-token", "****"))
	for _, span := range spans {
		for _, attr := range span.Attributes {
			assert.NotContains(t, attr.Value.AsString(), "my-secret", "span %q, attribute %q", span.Name, attr.Key)
		}
	}

	// Trace headers must be injected
	assert.NotEmpty(t, traceParentHeader)

	// Assert metrics
	metricsAll := &metricdata.ResourceMetrics{}
	assert.NoError(t, metricExporter.Collect(ctx, metricsAll))
	assert.Len(t, metricsAll.ScopeMetrics, 1)
	metrics := metricsAll.ScopeMetrics[0].Metrics
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].Name < metrics[j].Name
	})
	var metricsNames []string
	for _, m := range metrics {
		metricsNames = append(metricsNames, m.Name)
	}
	assert.Equal(t, []string{
		"eia.go.http.client.request.duration",
		"eia.go.http.client.request.in_flight",
		"eia.go.http.request.duration",
		"eia.go.http.request.in_flight",
	}, metricsNames)
}
