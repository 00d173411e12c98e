// Package eia contains request definitions for the EIA Open Data API, https://www.eia.gov/opendata/.
//
// The API struct resolves the API key, composes endpoint URLs and provides
// the low-level Fetch and Submit verbs. On top of it, resource queries such as
// SeriesQuery and CategoryQuery batch identifiers, send the requests and
// reshape the JSON responses to Go structures or to a table.Table.
//
// Requests can be sent by any HTTP client that implements the request.Sender interface.
package eia

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sort"

	"github.com/keboola/go-utils/pkg/orderedmap"
	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/eiadata/go-client/pkg/client"
	"github.com/eiadata/go-client/pkg/client/trace/otel"
	"github.com/eiadata/go-client/pkg/request"
	"github.com/eiadata/go-client/pkg/table"
)

// DefaultBaseURL is the root of the EIA Open Data API.
const DefaultBaseURL = "https://api.eia.gov"

// APIKeyEnvName is the environment variable with the API key,
// it is used when no key is supplied to the NewAPI function.
const APIKeyEnvName = "EIA_API_KEY"

// ErrAPIKeyMissing is returned by the NewAPI function when no API key is available.
// Register for a key at https://www.eia.gov/opendata/register.php.
var ErrAPIKeyMissing = errors.New("missing API key: use WithAPIKey or set the EIA_API_KEY environment variable")

// Query is a common interface of the resource queries.
// Each query also exposes a typed list operation, see for example SeriesQuery.List.
type Query interface {
	// Table materializes the query results to a tabular form.
	Table(ctx context.Context, opts ...TableOption) (*table.Table, error)
}

// API provides authenticated access to the EIA Open Data API endpoints.
// The value is immutable after construction, it is safe for concurrent use.
type API struct {
	sender request.Sender
	apiKey string
}

type apiConfig struct {
	client         *client.Client
	apiKey         string
	baseURL        string
	tracerProvider otelTrace.TracerProvider
	meterProvider  otelMetric.MeterProvider
	telemetryOpts  []otel.Option
}

type APIOption func(c *apiConfig)

// WithAPIKey sets the API key, it takes precedence over the EIA_API_KEY environment variable.
func WithAPIKey(apiKey string) APIOption {
	return func(c *apiConfig) {
		c.apiKey = apiKey
	}
}

// WithClient sets a custom HTTP client, for example a mocked client in tests.
func WithClient(cl *client.Client) APIOption {
	return func(c *apiConfig) {
		c.client = cl
	}
}

// WithBaseURL overrides the DefaultBaseURL.
func WithBaseURL(baseURL string) APIOption {
	return func(c *apiConfig) {
		c.baseURL = baseURL
	}
}

// WithTelemetry enables OpenTelemetry tracing and metrics in the underlying HTTP client.
func WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) APIOption {
	return func(c *apiConfig) {
		c.tracerProvider = tracerProvider
		c.meterProvider = meterProvider
		c.telemetryOpts = opts
	}
}

// NewAPI creates a new API instance.
// The API key is resolved from the options or from the EIA_API_KEY environment variable.
// If no key is found, ErrAPIKeyMissing is returned before any network activity.
func NewAPI(opts ...APIOption) (*API, error) {
	config := apiConfig{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&config)
	}

	apiKey := config.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnvName)
	}
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	var c client.Client
	if config.client != nil {
		c = *config.client
	} else {
		// Failed requests are not retried, failures propagate to the caller as-is.
		c = client.New().WithRetry(client.NoRetry())
	}
	if config.tracerProvider != nil || config.meterProvider != nil {
		c = c.WithTelemetry(config.tracerProvider, config.meterProvider, config.telemetryOpts...)
	}

	return &API{sender: c.WithBaseURL(config.baseURL), apiKey: apiKey}, nil
}

// Client returns the underlying sender.
func (a *API) Client() request.Sender {
	return a.sender
}

// newRequest creates a request for the endpoint with the default query
// parameters and the default error type set.
// The base URL and the endpoint path are joined with exactly one separator.
func (a *API) newRequest(endpoint string) request.HTTPRequest {
	return request.NewHTTPRequest(a.sender).
		WithGet(endpoint).
		AndQueryParam("api_key", a.apiKey).
		AndQueryParam("out", "json").
		WithError(&APIError{})
}

// fetchRequest is a read request, the caller params win over the defaults on a key collision.
func (a *API) fetchRequest(endpoint string, params map[string]string) request.HTTPRequest {
	r := a.newRequest(endpoint)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r = r.AndQueryParam(k, params[k])
	}
	return r
}

// submitRequest is a write request, the defaults stay in the query string
// and the data is form-encoded in the request body.
func (a *API) submitRequest(endpoint string, data map[string]any) request.HTTPRequest {
	return a.newRequest(endpoint).
		WithMethod(http.MethodPost).
		WithFormBody(request.ToFormBody(data))
}

// FetchRequest creates a read request for the endpoint, the response mapping is returned as-is.
// The resource queries provide typed alternatives, see for example CategoryQuery.GetRequest.
func (a *API) FetchRequest(endpoint string, params map[string]string) request.APIRequest[*orderedmap.OrderedMap] {
	result := orderedmap.New()
	return request.NewAPIRequest(result, a.fetchRequest(endpoint, params).WithResult(result))
}

// Fetch is a shortcut for FetchRequest(...).Send(ctx).
func (a *API) Fetch(ctx context.Context, endpoint string, params map[string]string) (*orderedmap.OrderedMap, error) {
	return a.FetchRequest(endpoint, params).Send(ctx)
}

// SubmitRequest creates a write request for the endpoint, the response mapping is returned as-is.
// The resource queries provide typed alternatives, see for example SeriesQuery.List.
func (a *API) SubmitRequest(endpoint string, data map[string]any) request.APIRequest[*orderedmap.OrderedMap] {
	result := orderedmap.New()
	return request.NewAPIRequest(result, a.submitRequest(endpoint, data).WithResult(result))
}

// Submit is a shortcut for SubmitRequest(...).Send(ctx).
func (a *API) Submit(ctx context.Context, endpoint string, data map[string]any) (*orderedmap.OrderedMap, error) {
	return a.SubmitRequest(endpoint, data).Send(ctx)
}
