package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eiadata/go-client/pkg/client/decode"
	"github.com/eiadata/go-client/pkg/client/trace"
	"github.com/eiadata/go-client/pkg/request"
)

// Send sends the request and maps the response body, it implements the request.Sender interface.
func (c Client) Send(ctx context.Context, def request.HTTPRequest) (res *http.Response, result any, err error) {
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// Method and URL panic when not set, read them before any other work
	method := def.Method()
	urlStr := def.URL().String()

	ctx, clientTrace := c.initTrace(ctx, def)

	reqURL, err := c.absoluteURL(urlStr)
	if err != nil {
		return nil, nil, err
	}
	reqURL.RawQuery = def.QueryParams().Encode()

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	c.setHeaders(req, def)
	if err := setBody(req, def); err != nil {
		return nil, nil, err
	}

	nativeClient := http.Client{
		Timeout:   c.retry.TotalRequestTimeout,
		Transport: roundTripper{retry: c.retry, trace: clientTrace, wrapped: c.transport},
	}

	startedAt := time.Now()
	res, err = nativeClient.Do(req)

	if clientTrace != nil && clientTrace.RequestProcessed != nil {
		defer func() {
			clientTrace.RequestProcessed(result, err)
		}()
	}

	if err != nil {
		return nil, nil, handleSendError(startedAt, c.retry.TotalRequestTimeout, req, err)
	}

	// Map the body to the result or error definition
	if r, e, unexpectedErr := handleResponseBody(res, def.ResultDef(), def.ErrorDef()); unexpectedErr == nil {
		result, err = r, e
	} else {
		err = fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), unexpectedErr)
	}

	// An error status without a mapped error
	if err == nil && res.StatusCode > 399 {
		return res, nil, fmt.Errorf(`request %s "%s" failed: %d %s`, req.Method, req.URL.String(), res.StatusCode, http.StatusText(res.StatusCode))
	}

	return res, result, err
}

// initTrace invokes the trace factories and composes their hooks.
// Hooks from the last registered factory are called first.
func (c Client) initTrace(ctx context.Context, def request.HTTPRequest) (context.Context, *trace.ClientTrace) {
	var clientTrace *trace.ClientTrace
	for i := len(c.traceFactories) - 1; i >= 0; i-- {
		oldTrace := clientTrace
		var newTrace *trace.ClientTrace
		ctx, newTrace = c.traceFactories[i](ctx, def)
		if newTrace == nil {
			continue
		}
		newTrace.Compose(oldTrace)
		clientTrace = newTrace
	}
	if clientTrace != nil {
		ctx = httptrace.WithClientTrace(ctx, &clientTrace.ClientTrace)
	}
	return ctx, clientTrace
}

func (c Client) absoluteURL(urlStr string) (*url.URL, error) {
	if c.baseURL == nil {
		return url.Parse(urlStr)
	}
	return c.baseURL.Parse(strings.TrimLeft(urlStr, "/"))
}

// setHeaders writes the common headers of the client and then the headers
// of the request, the request headers replace the common values.
func (c Client) setHeaders(req *http.Request, def request.HTTPRequest) {
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}
	for k, values := range def.RequestHeader() {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
}

func setBody(req *http.Request, def request.HTTPRequest) error {
	if def.RequestBody() == nil {
		return nil
	}
	// The GetBody factory re-creates the body when a redirect or retry sends the request again
	req.GetBody = func() (io.ReadCloser, error) {
		body, err := requestBody(def)
		if err != nil {
			return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, req.Method, req.URL.String(), err)
		}
		return body, nil
	}
	var err error
	req.Body, err = req.GetBody()
	return err
}

func requestBody(def request.HTTPRequest) (io.ReadCloser, error) {
	body := def.RequestBody()
	switch v := body.(type) {
	case string:
		return io.NopCloser(strings.NewReader(v)), nil
	case []byte:
		return io.NopCloser(bytes.NewReader(v)), nil
	case io.ReadSeekCloser:
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return v, nil
	case io.ReadSeeker:
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return io.NopCloser(v), nil
	}
	if def.RequestHeader().Get("Content-Type") == ContentTypeApplicationJSON {
		c, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf(`cannot encode JSON body: %w`, err)
		}
		return io.NopCloser(bytes.NewReader(c)), nil
	}
	return nil, nil
}

func handleResponseBody(r *http.Response, resultDef any, errDef error) (result any, err error, unexpectedErr error) {
	defer r.Body.Close()

	if r.StatusCode == http.StatusNoContent {
		return nil, nil, nil
	}

	if v, err := decode.Decode(r.Body, r.Header.Get("Content-Encoding")); err == nil {
		r.Body = v
	} else {
		return nil, nil, fmt.Errorf("cannot decode response: %w", err)
	}

	// Parameters of the content type, such as the charset, are ignored
	contentType := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	switch v := resultDef.(type) {
	case *[]byte:
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = bodyBytes
		return v, nil, nil
	case *string:
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = string(bodyBytes)
		return v, nil, nil
	case io.WriteCloser:
		if _, err := io.Copy(v, r.Body); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		if err := v.Close(); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return nil, nil, nil
	case io.Writer:
		if _, err := io.Copy(v, r.Body); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return nil, nil, nil
	}

	if !isJSONContentType(contentType) {
		return nil, nil, nil
	}

	if r.StatusCode > 199 && r.StatusCode < 300 && resultDef != nil {
		if err := json.NewDecoder(r.Body).Decode(resultDef); err != nil {
			return nil, nil, fmt.Errorf(`cannot decode JSON result: %w`, err)
		}
		return resultDef, nil, nil
	}

	if r.StatusCode > 399 && errDef != nil {
		if err := json.NewDecoder(r.Body).Decode(errDef); err != nil {
			return nil, nil, fmt.Errorf(`cannot decode JSON error: %w`, err)
		}
		if v, ok := errDef.(errorWithRequest); ok {
			v.SetRequest(r.Request)
		}
		if v, ok := errDef.(errorWithResponse); ok {
			v.SetResponse(r)
		}
		return nil, errDef, nil
	}

	return nil, nil, nil
}

// handleSendError converts context and network errors to readable messages.
func handleSendError(startedAt time.Time, clientTimeout time.Duration, req *http.Request, err error) error {
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s", deadline.Sub(startedAt)))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(req, fmt.Errorf("canceled after %s", time.Since(startedAt)))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		if strings.Contains(err.Error(), "Client.Timeout exceeded") {
			err = urlError(req, fmt.Errorf("timeout after %s", clientTimeout))
		} else {
			err = urlError(req, fmt.Errorf("timeout after %s", time.Since(startedAt)))
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}
	return err
}

// roundTripper wraps the transport and adds the trace hooks and retries.
type roundTripper struct {
	trace   *trace.ClientTrace
	retry   RetryConfig
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	state := rt.retry.NewBackoff()
	attempt := 0
	for {
		req = req.WithContext(context.WithValue(req.Context(), retryAttemptContextKey, attempt))

		if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
			rt.trace.HTTPRequestStart(req)
		}

		res, err := rt.wrapped.RoundTrip(req)

		if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
			rt.trace.HTTPRequestDone(res, err)
		}

		if rt.retry.Condition == nil || !rt.retry.Condition(res, err) || attempt >= rt.retry.Count {
			return res, err
		}

		delay := state.NextBackOff()
		if delay == backoff.Stop {
			return res, err
		}

		attempt++
		if rt.trace != nil && rt.trace.HTTPRequestRetry != nil {
			rt.trace.HTTPRequestRetry(attempt, delay)
		}

		// The body must be rewound, the previous attempt may have read it
		if req.GetBody != nil {
			req.Body, err = req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("cannot rewind body: %w", err)
			}
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.NewTimer(delay).C:
			// time elapsed, retry
		}
	}
}

type errorWithRequest interface {
	error
	SetRequest(request *http.Request)
}

type errorWithResponse interface {
	error
	SetResponse(response *http.Response)
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
