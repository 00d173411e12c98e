package trace_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"

	"github.com/eiadata/go-client/pkg/client"
	"github.com/eiadata/go-client/pkg/client/trace"
	"github.com/eiadata/go-client/pkg/request"
)

func TestDumpTracer(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://api.eia.gov/category/`, httpmock.ResponderFromMultipleResponses([]*http.Response{
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: http.StatusServiceUnavailable},
		{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"category":{"category_id":0}}`))},
	}))

	var logs strings.Builder
	c := client.New().
		WithTransport(transport).
		WithRetry(client.TestingRetry()).
		AndTrace(trace.DumpTracer(&logs))

	expected := `
>>>>>> HTTP DUMP
GET /category/?api_key=my-key HTTP/1.1
Host: api.eia.gov
User-Agent: eia-go-client
Accept-Encoding: gzip, br
------
HTTP/0.0 429 Too Many Requests
Content-Length: 0
<<<<<< HTTP DUMP END

>>>>>> HTTP RETRY | ATTEMPT: 1 | DELAY: 1ms | GET /category/?api_key=my-key 429 | ERROR: <nil>

>>>>>> HTTP DUMP
GET /category/?api_key=my-key HTTP/1.1
Host: api.eia.gov
User-Agent: eia-go-client
Accept-Encoding: gzip, br
------
HTTP/0.0 503 Service Unavailable
Content-Length: 0
<<<<<< HTTP DUMP END

>>>>>> HTTP RETRY | ATTEMPT: 2 | DELAY: 1ms | GET /category/?api_key=my-key 503 | ERROR: <nil>

>>>>>> HTTP DUMP
GET /category/?api_key=my-key HTTP/1.1
Host: api.eia.gov
User-Agent: eia-go-client
Accept-Encoding: gzip, br
------
HTTP/0.0 200 OK
Content-Length: 0
------
{"category":{"category_id":0}}
<<<<<< HTTP DUMP END

>>>>>> HTTP REQUEST PROCESSED | GET /category/?api_key=my-key 200 | ERROR: <nil> | HEADERS AT: %s | DONE AT: %s
`

	str := ""
	_, result, err := request.NewHTTPRequest(c).
		WithGet("https://api.eia.gov/category/").
		AndQueryParam("api_key", "my-key").
		WithResult(&str).
		Send(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, `{"category":{"category_id":0}}`, *result.(*string))
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}
