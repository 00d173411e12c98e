package otel

import (
	"go.opentelemetry.io/otel/metric"
)

const (
	clientMeterPrefix = "eia.go.http.client."
	httpMeterPrefix   = "eia.go.http."
)

type meters struct {
	client clientMeters
	http   httpMeters
}

// clientMeters track each "logical" HTTP request send by the client,
// all redirects and retries are tracked together, it is one operation.
type clientMeters struct {
	inFlight metric.Int64UpDownCounter
	duration metric.Float64Histogram
}

// httpMeters track each HTTP request separately, including redirects and retries.
type httpMeters struct {
	inFlight metric.Int64UpDownCounter
	duration metric.Float64Histogram
}

func newMeters(meter metric.Meter) *meters {
	return &meters{
		client: clientMeters{
			inFlight: mustInstrument(meter.Int64UpDownCounter(clientMeterPrefix+"request.in_flight", metric.WithDescription("HTTP client: in flight requests."))),
			duration: mustInstrument(meter.Float64Histogram(clientMeterPrefix+"request.duration", metric.WithDescription("HTTP client: requests duration."), metric.WithUnit("ms"))),
		},
		http: httpMeters{
			inFlight: mustInstrument(meter.Int64UpDownCounter(httpMeterPrefix+"request.in_flight", metric.WithDescription("HTTP request: in flight requests."))),
			duration: mustInstrument(meter.Float64Histogram(httpMeterPrefix+"request.duration", metric.WithDescription("HTTP request: response received duration."), metric.WithUnit("ms"))),
		},
	}
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
