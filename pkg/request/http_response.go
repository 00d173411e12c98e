package request

import "net/http"

// HTTPResponse is the outcome of a sent HTTPRequest.
// It exposes the original definition, the raw response
// and the response body mapped to the Result() value.
type HTTPResponse interface {
	httpRequestReadOnly
	// ResponseHeader returns the HTTP response headers.
	ResponseHeader() http.Header
	// StatusCode returns the HTTP status code.
	StatusCode() int
	// RawRequest returns the standard HTTP request of the last retry attempt.
	RawRequest() *http.Request
	// RawResponse returns the standard HTTP response.
	RawResponse() *http.Response
	// IsSuccess reports whether the HTTP status `code >= 200 and <= 299`.
	IsSuccess() bool
	// IsError reports whether the HTTP status `code >= 400`.
	IsError() bool
	// Result returns the response body mapped to the registered result value, if any.
	Result() any
	// Error returns the response mapped to the registered error value,
	// or a native HTTP error, for example a network problem.
	Error() error
}

// httpResponse implements the HTTPResponse interface.
type httpResponse struct {
	httpRequest
	rawResponse *http.Response
	result      any
	err         error
}

func (r httpResponse) ResponseHeader() http.Header {
	return r.rawResponse.Header
}

func (r httpResponse) StatusCode() int {
	return r.rawResponse.StatusCode
}

func (r httpResponse) RawRequest() *http.Request {
	if r.rawResponse != nil && r.rawResponse.Request != nil {
		return r.rawResponse.Request
	}
	return nil
}

func (r httpResponse) RawResponse() *http.Response {
	return r.rawResponse
}

func (r httpResponse) IsSuccess() bool {
	return r.StatusCode() > 199 && r.StatusCode() < 300
}

func (r httpResponse) IsError() bool {
	return r.StatusCode() > 399
}

func (r httpResponse) Result() any {
	return r.result
}

func (r httpResponse) Error() error {
	return r.err
}
