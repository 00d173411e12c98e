// Package otel provides OpenTelemetry tracing and metrics for HTTP client requests.
//
// The package provides 3 types of telemetry:
// 1. Low-level [httptrace] telemetry:
//   - It provides spans for HTTP request parts, for example: "http.dns", "http.tls", "http.getconn".
//   - Span names start with "http".
//
// 2. Per-request telemetry:
//   - It provides span and metrics for every sent HTTP request, including redirects and retries.
//   - Span name is "http.request".
//   - Metrics names start with "eia.go.http." (httpPrefix const).
//
// 3. High-level telemetry:
//   - It provides span and metrics for each "logical" HTTP request send by the client.
//   - Main span "eia.go.http.client.request" wraps all redirects and retries together.
//   - Span "eia.go.http.client.retry.delay" tracks delay before retry.
//   - Metrics names start with "eia.go.http.client." (clientPrefix const).
//
// The package [otelhttp] (its client part) is not used, because it doesn't provide metrics.
//
// [otelhttp]: https://pkg.go.dev/go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp
package otel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/eiadata/go-client/pkg/client/trace"
	"github.com/eiadata/go-client/pkg/request"
)

const (
	traceAppName     = "github.com/eiadata/go-client"
	attrResourceName = attribute.Key("resource.name")
	// Low-level tracing, for each redirect and retry.
	httpSpanPrefix             = "http."
	httpRequestSpanName        = httpSpanPrefix + "request"
	httpDNSSpanName            = httpSpanPrefix + "dns"
	httpGetConnSpanName        = httpSpanPrefix + "getconn"
	httpConnectSpanName        = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName   = httpSpanPrefix + "tls"
	httpHeadersSpanName        = httpSpanPrefix + "headers"
	httpSendSpanName           = httpSpanPrefix + "send"
	httpReceiveSpanName        = httpSpanPrefix + "receive"
	attrDNSAddresses           = attribute.Key("http.dns.addrs")
	attrRemoteAddr             = attribute.Key("http.remote")
	attrLocalAddr              = attribute.Key("http.local")
	attrConnectionReused       = attribute.Key("http.conn.reused")
	attrConnectionWasIdle      = attribute.Key("http.conn.wasidle")
	attrConnectionIdleTime     = attribute.Key("http.conn.idletime")
	attrConnectionStartNetwork = attribute.Key("http.conn.start.network")
	attrConnectionDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnectionDoneAddr     = attribute.Key("http.conn.done.addr")
	// High-level tracing.
	clientSpanPrefix         = "eia.go.http.client."
	clientRequestSpanName    = clientSpanPrefix + "request"
	clientRetryDelaySpanName = clientSpanPrefix + "retry.delay"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

// NewTrace creates a trace.Factory providing OpenTelemetry tracing and metrics.
// Nil providers are replaced by no-op implementations.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(rootCtx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		tel := &telemetry{cfg: cfg, tracer: tracer, meters: meters, attrs: newAttributes(cfg, reqDef)}
		return tel.start(rootCtx)
	}
}

// telemetry holds the spans of one logical request.
// The root span may contain multiple HTTP request spans (redirects, retries, ...).
type telemetry struct {
	cfg    config
	tracer otelTrace.Tracer
	meters *meters
	attrs  *attributes

	rootCtx context.Context
	httpCtx context.Context

	rootSpan       otelTrace.Span
	httpSpan       otelTrace.Span
	retryDelaySpan otelTrace.Span
	receiveSpan    otelTrace.Span

	rootStart time.Time
	httpStart time.Time
}

func (tel *telemetry) start(ctx context.Context) (context.Context, *trace.ClientTrace) {
	tel.rootStart = time.Now()
	tel.meters.client.inFlight.Add(ctx, 1, otelMetric.WithAttributes(tel.attrs.definition...))

	tel.rootCtx, tel.rootSpan = tel.tracer.Start(
		ctx,
		clientRequestSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(
			attrResourceName.String(tel.attrs.definitionURL.Path),
			attrSpanKind.String(attrSpanKindValueClient),
			attrSpanType.String(attrSpanTypeValueHTTP),
		),
		otelTrace.WithAttributes(tel.attrs.definition...),
		otelTrace.WithAttributes(tel.attrs.definitionExtra...),
	)

	tc := &trace.ClientTrace{}
	tc.HTTPRequestStart = tel.httpRequestStart
	tc.HTTPRequestDone = tel.httpRequestDone
	tc.HTTPRequestRetry = tel.httpRequestRetry
	tc.RequestProcessed = tel.requestProcessed
	tel.registerConnectionSpans(tc)
	return tel.rootCtx, tc
}

func (tel *telemetry) httpRequestStart(req *http.Request) {
	// The delay is over, the retry attempt starts
	if tel.retryDelaySpan != nil {
		tel.retryDelaySpan.End()
		tel.retryDelaySpan = nil
	}

	tel.httpCtx, tel.httpSpan = tel.tracer.Start(
		tel.rootCtx,
		httpRequestSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(
			attrSpanKind.String(attrSpanKindValueClient),
			attrSpanType.String(attrSpanTypeValueHTTP),
		),
	)

	// Inject trace headers
	if tel.cfg.propagators != nil {
		tel.cfg.propagators.Inject(tel.httpCtx, propagation.HeaderCarrier(req.Header))
	}

	tel.httpStart = time.Now()
	tel.attrs.SetFromRequest(req)
	tel.httpSpan.SetAttributes(attrResourceName.String(tel.attrs.httpURL.Path))
	tel.httpSpan.SetAttributes(tel.attrs.httpRequest...)
	tel.httpSpan.SetAttributes(tel.attrs.httpRequestExtra...)

	tel.meters.http.inFlight.Add(tel.rootCtx, 1, otelMetric.WithAttributes(tel.attrs.httpRequest...))
}

func (tel *telemetry) httpRequestDone(res *http.Response, err error) {
	tel.attrs.SetFromResponse(res, err)
	elapsedTime := float64(time.Since(tel.httpStart)) / float64(time.Millisecond)

	// The in-flight attributes must match the +1 in httpRequestStart
	tel.meters.http.inFlight.Add(tel.rootCtx, -1, otelMetric.WithAttributes(tel.attrs.httpRequest...))
	tel.meters.http.duration.Record(
		tel.rootCtx,
		elapsedTime,
		otelMetric.WithAttributes(tel.attrs.httpRequest...),
		otelMetric.WithAttributes(tel.attrs.httpResponse...),
		otelMetric.WithAttributes(tel.attrs.httpResponseError...),
	)

	if tel.receiveSpan != nil {
		if err != nil {
			tel.receiveSpan.RecordError(err)
			tel.receiveSpan.SetStatus(codes.Error, err.Error())
		}
		tel.receiveSpan.End()
		tel.receiveSpan = nil
	}

	if tel.httpSpan != nil {
		tel.httpSpan.SetAttributes(tel.attrs.httpResponse...)
		tel.httpSpan.SetAttributes(tel.attrs.httpResponseExtra...)
		switch {
		case err != nil:
			tel.httpSpan.RecordError(err)
			tel.httpSpan.SetStatus(codes.Error, err.Error())
		case res != nil && res.StatusCode >= http.StatusBadRequest:
			httpErr := fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode))
			tel.httpSpan.RecordError(httpErr)
			tel.httpSpan.SetStatus(codes.Error, httpErr.Error())
		}
		tel.httpSpan.End()
		tel.httpSpan = nil
	}
}

func (tel *telemetry) httpRequestRetry(attempt int, delay time.Duration) {
	// The span is ended by the httpRequestStart hook,
	// or by the requestProcessed hook when the request timeouts during the delay
	_, tel.retryDelaySpan = tel.tracer.Start(
		tel.rootCtx,
		clientRetryDelaySpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(tel.attrs.httpRequest...),
		otelTrace.WithAttributes(tel.attrs.httpResponse...),
		otelTrace.WithAttributes(
			attribute.Int("api.request.retry.attempt", attempt),
			attribute.Int64("api.request.retry.delay_ms", delay.Milliseconds()),
			attribute.String("api.request.retry.delay_string", delay.String()),
		),
	)
}

func (tel *telemetry) requestProcessed(result any, err error) {
	elapsedTime := float64(time.Since(tel.rootStart)) / float64(time.Millisecond)

	// The in-flight attributes must match the +1 in the start method
	meterAttrs := append(tel.attrs.definition, tel.attrs.httpResponse...)
	tel.meters.client.inFlight.Add(tel.rootCtx, -1, otelMetric.WithAttributes(tel.attrs.definition...))
	tel.meters.client.duration.Record(tel.rootCtx, elapsedTime, otelMetric.WithAttributes(meterAttrs...))

	if tel.retryDelaySpan != nil {
		tel.retryDelaySpan.End()
		tel.retryDelaySpan = nil
	}
	if tel.rootSpan != nil {
		// Attributes from the last response
		tel.rootSpan.SetAttributes(tel.attrs.httpResponse...)
		tel.rootSpan.SetAttributes(tel.attrs.httpResponseExtra...)
		if err == nil {
			tel.rootSpan.End()
		} else {
			tel.rootSpan.RecordError(err)
			tel.rootSpan.SetStatus(codes.Error, err.Error())
			tel.rootSpan.End(otelTrace.WithStackTrace(true))
		}
		tel.rootSpan = nil
	}
}

// registerConnectionSpans registers the low-level httptrace hooks.
// The "otelhttptrace" pkg from the opentelemetry-contrib module is buggy, it does not end spans:
// https://github.com/open-telemetry/opentelemetry-go-contrib/issues/399
func (tel *telemetry) registerConnectionSpans(tc *trace.ClientTrace) {
	// DNS
	var dnsSpan otelTrace.Span
	tc.DNSStart = func(info httptrace.DNSStartInfo) {
		_, dnsSpan = tel.tracer.Start(
			tel.httpCtx,
			httpDNSSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			otelTrace.WithAttributes(semconv.NetHostName(info.Host)),
		)
	}
	tc.DNSDone = func(info httptrace.DNSDoneInfo) {
		if dnsSpan == nil {
			return
		}
		var addrs []string
		for _, netAddr := range info.Addrs {
			addrs = append(addrs, netAddr.String())
		}
		dnsSpan.SetAttributes(attrDNSAddresses.String(strings.Join(addrs, ";")))
		if info.Err != nil {
			dnsSpan.RecordError(info.Err)
			dnsSpan.SetStatus(codes.Error, info.Err.Error())
		}
		dnsSpan.End()
		dnsSpan = nil
	}

	// Get connection
	var getConnSpan otelTrace.Span
	tc.GetConn = func(host string) {
		_, getConnSpan = tel.tracer.Start(
			tel.httpCtx,
			httpGetConnSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			otelTrace.WithAttributes(semconv.NetHostName(host)),
		)
	}
	tc.GotConn = func(info httptrace.GotConnInfo) {
		if getConnSpan == nil {
			return
		}
		getConnSpan.SetAttributes(
			attrRemoteAddr.String(info.Conn.RemoteAddr().String()),
			attrLocalAddr.String(info.Conn.LocalAddr().String()),
			attrConnectionReused.Bool(info.Reused),
			attrConnectionWasIdle.Bool(info.WasIdle),
		)
		if info.WasIdle {
			getConnSpan.SetAttributes(attrConnectionIdleTime.String(info.IdleTime.String()))
		}
		getConnSpan.End()
		getConnSpan = nil
	}

	// Connect
	var connectSpan otelTrace.Span
	tc.ConnectStart = func(network, addr string) {
		_, connectSpan = tel.tracer.Start(
			tel.httpCtx,
			httpConnectSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			otelTrace.WithAttributes(
				attrRemoteAddr.String(addr),
				attrConnectionStartNetwork.String(network),
			),
		)
	}
	tc.ConnectDone = func(network, addr string, err error) {
		if connectSpan == nil {
			return
		}
		connectSpan.SetAttributes(
			attrConnectionDoneAddr.String(addr),
			attrConnectionDoneNetwork.String(network),
		)
		if err != nil {
			connectSpan.RecordError(err)
			connectSpan.SetStatus(codes.Error, err.Error())
		}
		connectSpan.End()
		connectSpan = nil
	}

	// TLS handshake.
	// Not reported if the http2.Transport is used directly, without upgrade from http.Transport.
	var tlsSpan otelTrace.Span
	tc.TLSHandshakeStart = func() {
		_, tlsSpan = tel.tracer.Start(
			tel.httpCtx,
			httpTLSHandshakeSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		)
	}
	tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
		if tlsSpan == nil {
			return
		}
		if err != nil {
			tlsSpan.RecordError(err)
			tlsSpan.SetStatus(codes.Error, err.Error())
		}
		tlsSpan.End()
		tlsSpan = nil
	}

	// Headers and body send
	var headersSpan otelTrace.Span
	var sendSpan otelTrace.Span
	tc.WroteHeaderField = func(_ string, _ []string) {
		// The headers span starts at the first written header
		if headersSpan == nil {
			_, headersSpan = tel.tracer.Start(
				tel.httpCtx,
				httpHeadersSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			)
		}
	}
	tc.WroteHeaders = func() {
		if headersSpan != nil {
			headersSpan.End()
			headersSpan = nil
		}
		_, sendSpan = tel.tracer.Start(
			tel.httpCtx,
			httpSendSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		)
	}
	tc.WroteRequest = func(info httptrace.WroteRequestInfo) {
		if sendSpan == nil {
			return
		}
		if info.Err != nil {
			sendSpan.RecordError(info.Err)
			sendSpan.SetStatus(codes.Error, info.Err.Error())
		}
		sendSpan.End()
		sendSpan = nil
	}

	// Response receive
	tc.GotFirstResponseByte = func() {
		_, tel.receiveSpan = tel.tracer.Start(
			tel.httpCtx,
			httpReceiveSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		)
	}
}
