package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Result - any value.
type Result = any

// HTTPRequest is an immutable HTTP request definition.
//
// Every With/And method returns a modified copy, the original value is never
// changed, so a partially built request can be shared safely. A typical
// definition sets the method and URL, adds the authentication query
// parameters and registers the result and error values for mapping:
//
//	request.NewHTTPRequest(sender).
//		WithGet("series/").
//		AndQueryParam("api_key", key).
//		WithResult(&result).
//		WithError(&apiErr)
type HTTPRequest interface {
	httpRequestReadOnly
	// WithGet is a shortcut for WithMethod(http.MethodGet).WithURL(url).
	WithGet(url string) HTTPRequest
	// WithPost is a shortcut for WithMethod(http.MethodPost).WithURL(url).
	WithPost(url string) HTTPRequest
	// WithMethod sets the HTTP method.
	WithMethod(method string) HTTPRequest
	// WithBaseURL sets the base URL, a relative request URL is resolved against it.
	WithBaseURL(baseURL string) HTTPRequest
	// WithURL sets the request URL, it may be relative to the base URL.
	WithURL(url string) HTTPRequest
	// AndHeader sets one header field.
	AndHeader(header string, value string) HTTPRequest
	// AndQueryParam sets one query parameter, an existing value of the key is replaced.
	AndQueryParam(param, value string) HTTPRequest
	// WithQueryParams replaces all query parameters.
	WithQueryParams(params map[string]string) HTTPRequest
	// WithFormBody sets the body to the form parameters
	// and the Content-Type header to "application/x-www-form-urlencoded".
	WithFormBody(form map[string]string) HTTPRequest
	// WithJSONBody sets the body to the JSON value
	// and the Content-Type header to "application/json".
	WithJSONBody(body any) HTTPRequest
	// WithBody sets the raw request body, see RequestBody for the supported types.
	WithBody(body any) HTTPRequest
	// WithError registers a value to which an error response body is mapped.
	WithError(err error) HTTPRequest
	// WithResult registers a value to which a success response body is mapped.
	WithResult(result any) HTTPRequest
	// WithOnComplete registers a callback executed when the request completes.
	WithOnComplete(func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest
	// WithOnSuccess registers a callback executed when the request completes with `code >= 200 and <= 299`.
	WithOnSuccess(func(ctx context.Context, response HTTPResponse) error) HTTPRequest
	// WithOnError registers a callback executed when the request completes with `code >= 400`.
	WithOnError(func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest
	// Send sends the defined request and returns the response, the mapped result and an error.
	Send(ctx context.Context) (response HTTPResponse, result any, err error)
	SendOrErr(ctx context.Context) error
}

// httpRequestReadOnly is the accessor side of the definition, used by the
// Sender and the tracing hooks.
type httpRequestReadOnly interface {
	// Method returns the HTTP method, it panics if the method has not been set.
	Method() string
	// URL returns the request URL resolved against the base URL, if any.
	URL() *url.URL
	// RequestHeader returns the HTTP request headers.
	RequestHeader() http.Header
	// QueryParams returns the HTTP query parameters.
	QueryParams() url.Values
	// RequestBody returns the request body definition.
	// Supported body types are `string`, `[]byte`, `*struct`, `*map`, `*slice`,
	// `io.ReadSeeker` and `io.ReadSeekCloser`; struct, map and slice values
	// are marshaled to JSON.
	RequestBody() any
	// ErrorDef returns the registered target value for error mapping.
	ErrorDef() error
	// ResultDef returns the registered target value for result mapping.
	ResultDef() any
}

// NewHTTPRequest creates an immutable HTTP request definition, sent by the given sender.
func NewHTTPRequest(sender Sender) HTTPRequest {
	return httpRequest{sender: sender, header: make(http.Header)}
}

// httpRequest implements HTTPRequest, the value receiver makes every
// modification operate on a copy.
type httpRequest struct {
	sender      Sender
	method      string
	baseURL     *url.URL
	url         *url.URL
	header      http.Header
	queryParams url.Values
	body        any
	resultDef   any
	errorDef    error
	listeners   []func(ctx context.Context, response HTTPResponse, err error) error
}

func (r httpRequest) WithGet(url string) HTTPRequest {
	return r.WithMethod(http.MethodGet).WithURL(url)
}

func (r httpRequest) WithPost(url string) HTTPRequest {
	return r.WithMethod(http.MethodPost).WithURL(url)
}

func (r httpRequest) WithMethod(method string) HTTPRequest {
	r.method = method
	return r
}

func (r httpRequest) WithBaseURL(baseURL string) HTTPRequest {
	v, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid :%w`, baseURL, err))
	}
	// The trailing slash makes ResolveReference join the path instead of replacing it
	v.Path = strings.TrimRight(v.Path, "/") + "/"
	r.baseURL = v
	return r
}

func (r httpRequest) WithURL(urlStr string) HTTPRequest {
	v, err := url.Parse(urlStr)
	if err != nil {
		panic(fmt.Errorf(`url "%s" is not valid :%w`, urlStr, err))
	}
	r.url = v
	return r
}

func (r httpRequest) AndHeader(header string, value string) HTTPRequest {
	r.header = r.header.Clone()
	r.header.Set(header, value)
	return r
}

func (r httpRequest) AndQueryParam(key, value string) HTTPRequest {
	r.queryParams = cloneURLValues(r.queryParams)
	r.queryParams.Set(key, value)
	return r
}

func (r httpRequest) WithQueryParams(params map[string]string) HTTPRequest {
	r.queryParams = make(url.Values)
	for k, v := range params {
		r.queryParams.Set(k, v)
	}
	return r
}

func (r httpRequest) WithFormBody(form map[string]string) HTTPRequest {
	formData := make(url.Values)
	for k, v := range form {
		formData.Set(k, v)
	}
	return r.
		WithBody(formData.Encode()).
		AndHeader("Content-Type", "application/x-www-form-urlencoded")
}

func (r httpRequest) WithJSONBody(body any) HTTPRequest {
	return r.
		WithBody(body).
		AndHeader("Content-Type", "application/json")
}

func (r httpRequest) WithBody(body any) HTTPRequest {
	r.body = body
	return r
}

func (r httpRequest) WithError(err error) HTTPRequest {
	if reflect.ValueOf(err).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`error must be defined by a pointer`))
	}
	r.errorDef = err
	return r
}

func (r httpRequest) WithResult(result any) HTTPRequest {
	_, ok1 := result.(io.Writer)
	_, ok2 := result.(io.WriteCloser)
	if !ok1 && !ok2 && reflect.ValueOf(result).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`result must be defined by a pointer`))
	}
	r.resultDef = result
	return r
}

func (r httpRequest) WithOnComplete(fn func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest {
	r.listeners = append(r.listeners, fn)
	return r
}

func (r httpRequest) WithOnSuccess(fn func(ctx context.Context, response HTTPResponse) error) HTTPRequest {
	r.listeners = append(r.listeners, func(ctx context.Context, response HTTPResponse, err error) error {
		if err == nil {
			return fn(ctx, response)
		}
		return err
	})
	return r
}

func (r httpRequest) WithOnError(fn func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest {
	r.listeners = append(r.listeners, func(ctx context.Context, response HTTPResponse, err error) error {
		if err != nil {
			return fn(ctx, response, err)
		}
		return err
	})
	return r
}

func (r httpRequest) Send(ctx context.Context) (HTTPResponse, any, error) {
	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rawResponse, result, err := r.sender.Send(ctx, r)
	out := &httpResponse{httpRequest: r, rawResponse: rawResponse, result: result, err: err}

	// Invoke listeners
	for _, fn := range r.listeners {
		// Stop if context has been cancelled
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out.err = fn(ctx, out, out.err)
	}

	return out, out.result, out.err
}

func (r httpRequest) SendOrErr(ctx context.Context) error {
	_, _, err := r.Send(ctx)
	return err
}

func (r httpRequest) Method() string {
	if r.method == "" {
		panic(fmt.Errorf("request method is not set"))
	}
	return r.method
}

func (r httpRequest) URL() *url.URL {
	if r.url == nil {
		panic(fmt.Errorf("request url is not set"))
	}

	clone := *r.url
	outURL := &clone
	if r.baseURL != nil && !outURL.IsAbs() {
		outURL.Path = strings.TrimLeft(outURL.Path, "/")
		outURL = r.baseURL.ResolveReference(outURL)
	}

	return outURL
}

func (r httpRequest) RequestHeader() http.Header {
	return r.header
}

func (r httpRequest) QueryParams() url.Values {
	return r.queryParams
}

func (r httpRequest) RequestBody() any {
	return r.body
}

func (r httpRequest) ErrorDef() error {
	return r.errorDef
}

func (r httpRequest) ResultDef() any {
	return r.resultDef
}

func (r httpRequest) Tracer() trace.Tracer {
	if tp, ok := r.sender.(withTracer); ok {
		return tp.Tracer()
	}
	return nil
}
