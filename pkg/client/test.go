package client

import (
	"context"
	"os"

	"github.com/jarcoal/httpmock"

	"github.com/eiadata/go-client/pkg/client/trace"
	"github.com/eiadata/go-client/pkg/request"
)

var testTransport = DefaultTransport() //nolint:gochecknoglobals

// NewTestClient creates the Client for tests.
//
// If the TEST_HTTP_CLIENT_VERBOSE environment variable is set to "true",
// then all HTTP requests and responses are dumped to stdout.
//
// Output may contain unmasked credentials, do not use it in production.
func NewTestClient() Client {
	return New().
		WithTransport(testTransport).
		AndTrace(func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
			if os.Getenv("TEST_HTTP_CLIENT_VERBOSE") == "true" { //nolint:forbidigo
				return trace.DumpTracer(os.Stdout)(ctx, reqDef)
			}
			return ctx, nil
		})
}

// NewMockedClient creates the Client with mocked HTTP transport.
func NewMockedClient() (Client, *httpmock.MockTransport) {
	mockTransport := httpmock.NewMockTransport()
	return NewTestClient().WithTransport(mockTransport), mockTransport
}
