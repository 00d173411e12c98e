package trace_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	. "github.com/eiadata/go-client/pkg/client"
	. "github.com/eiadata/go-client/pkg/client/trace"
	. "github.com/eiadata/go-client/pkg/request"
)

func TestClientTrace(t *testing.T) {
	t.Parallel()

	// The first hop redirects to the canonical path, then two attempts are throttled
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://api.eia.gov/series`, func(request *http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Location", "https://api.eia.gov/series/")
		return &http.Response{StatusCode: http.StatusMovedPermanently, Header: header}, nil
	})
	transport.RegisterResponder("GET", `https://api.eia.gov/series/`, httpmock.ResponderFromMultipleResponses([]*http.Response{
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: http.StatusServiceUnavailable},
		{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("pong"))},
	}))

	var events strings.Builder
	c := New().
		WithTransport(transport).
		WithRetry(RetryConfig{
			Condition:     DefaultRetryCondition(),
			Count:         3,
			WaitTimeStart: 1 * time.Microsecond,
			WaitTimeMax:   20 * time.Microsecond,
		}).
		AndTrace(func(ctx context.Context, reqDef HTTPRequest) (context.Context, *ClientTrace) {
			events.WriteString(fmt.Sprintf("trace     %s %s\n", reqDef.Method(), reqDef.URL()))
			return ctx, &ClientTrace{
				HTTPRequestStart: func(request *http.Request) {
					events.WriteString(fmt.Sprintf("start     %s %s\n", request.Method, request.URL))
				},
				HTTPRequestDone: func(response *http.Response, err error) {
					events.WriteString(fmt.Sprintf("done      %d err=%v\n", response.StatusCode, err))
				},
				HTTPRequestRetry: func(attempt int, delay time.Duration) {
					events.WriteString(fmt.Sprintf("retry     attempt=%d delay=%s\n", attempt, delay))
				},
				RequestProcessed: func(result any, err error) {
					events.WriteString(fmt.Sprintf("processed result=%q err=%v\n", *result.(*string), err))
				},
			}
		})

	expected := strings.TrimLeft(`
trace     GET https://api.eia.gov/series
start     GET https://api.eia.gov/series
done      301 err=<nil>
start     GET https://api.eia.gov/series/
done      429 err=<nil>
retry     attempt=1 delay=1µs
start     GET https://api.eia.gov/series/
done      503 err=<nil>
retry     attempt=2 delay=2µs
start     GET https://api.eia.gov/series/
done      200 err=<nil>
processed result="pong" err=<nil>
`, "\n")

	str := ""
	_, result, err := NewHTTPRequest(c).WithGet("https://api.eia.gov/series").WithResult(&str).Send(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "pong", *result.(*string))
	assert.Equal(t, expected, events.String())
}

// TestClientTrace_Composition checks the hook order of multiple registered traces:
// the factories run in the reverse registration order and so do the composed hooks.
func TestClientTrace_Composition(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://api.eia.gov/category/`, httpmock.NewStringResponder(200, "OK"))

	var events strings.Builder
	eventTrace := func(name string, factoryEvent bool) Factory {
		return func(ctx context.Context, reqDef HTTPRequest) (context.Context, *ClientTrace) {
			if factoryEvent {
				events.WriteString(fmt.Sprintf("%s: trace     %s %s\n", name, reqDef.Method(), reqDef.URL()))
			}
			return ctx, &ClientTrace{
				HTTPRequestStart: func(request *http.Request) {
					events.WriteString(fmt.Sprintf("%s: start     %s %s\n", name, request.Method, request.URL))
				},
				HTTPRequestDone: func(response *http.Response, err error) {
					events.WriteString(fmt.Sprintf("%s: done      %d err=%v\n", name, response.StatusCode, err))
				},
				RequestProcessed: func(result any, err error) {
					events.WriteString(fmt.Sprintf("%s: processed err=%v\n", name, err))
				},
			}
		}
	}

	c := New().
		WithTransport(transport).
		WithRetry(TestingRetry()).
		AndTrace(eventTrace("a", true)).
		AndTrace(eventTrace("b", true)).
		AndTrace(eventTrace("c", false))

	expected := strings.TrimLeft(`
b: trace     GET https://api.eia.gov/category/
a: trace     GET https://api.eia.gov/category/
c: start     GET https://api.eia.gov/category/
b: start     GET https://api.eia.gov/category/
a: start     GET https://api.eia.gov/category/
c: done      200 err=<nil>
b: done      200 err=<nil>
a: done      200 err=<nil>
c: processed err=<nil>
b: processed err=<nil>
a: processed err=<nil>
`, "\n")

	str := ""
	_, result, err := NewHTTPRequest(c).WithGet("https://api.eia.gov/category/").WithResult(&str).Send(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "OK", *result.(*string))
	assert.Equal(t, expected, events.String())
}
