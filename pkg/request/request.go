// Package request defines immutable HTTP requests and their mapping to results.
//
// NewHTTPRequest creates a request definition, for example a GET of the series
// endpoint with the API key in the query string. The definition itself holds no
// connection state, it is sent by a Sender. The client.Client is the default
// Sender implementation built on the standard net/http package.
//
// NewAPIRequest wraps one or more HTTPRequest values into an API operation
// whose response is mapped to the generic result type R, with an OpenTelemetry
// span around the whole operation.
//
// WaitGroup and RunGroup send requests concurrently, see their docs for the
// difference in scheduling and error handling.
package request

import (
	"context"
	"net/http"
)

// Sender sends a defined HTTPRequest and returns the raw response together
// with the mapped result.
//
// The dynamic type of the result matches HTTPRequest.ResultDef(). The method
// cannot be written with a generic result yet, Go methods cannot have their
// own type parameters, so the mapping to a typed value is done one level
// higher, by APIRequest.
type Sender interface {
	Send(ctx context.Context, request HTTPRequest) (rawResponse *http.Response, result any, err error)
}

// Sendable is a HTTPRequest or an APIRequest, it allows the concurrency
// helpers to handle both uniformly.
type Sendable interface {
	SendOrErr(ctx context.Context) error
}
