package request_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/eiadata/go-client/pkg/client"
	"github.com/eiadata/go-client/pkg/request"
)

type categoryPayload struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

type emptyPayload struct{}

func TestAPIRequest_Send(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	transport.RegisterResponder(
		"GET", "https://api.eia.gov/category/",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"category_id": "40203", "name": "Coal"}),
	)

	result := &categoryPayload{}
	httpRequest := request.NewHTTPRequest(c).
		WithGet("https://api.eia.gov/category/").
		WithResult(result)

	var callbacks []string
	apiRequest := request.
		NewAPIRequest(result, httpRequest).
		WithOnComplete(func(ctx context.Context, result *categoryPayload, err error) error {
			callbacks = append(callbacks, "complete")
			return err
		}).
		WithOnSuccess(func(ctx context.Context, result *categoryPayload) error {
			callbacks = append(callbacks, "success")
			return nil
		}).
		WithOnError(func(ctx context.Context, err error) error {
			callbacks = append(callbacks, "error")
			return err
		})

	out, err := apiRequest.Send(context.Background())
	assert.NoError(t, err)
	assert.Same(t, result, out)
	assert.Equal(t, &categoryPayload{CategoryID: "40203", Name: "Coal"}, out)
	assert.Equal(t, []string{"complete", "success"}, callbacks)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestAPIRequest_SendParallelRequests(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `=~^https://api.eia.gov/`, httpmock.NewStringResponder(200, "OK"))

	// All wrapped requests are sent, the result value is shared
	apiRequest := request.NewAPIRequest(
		emptyPayload{},
		request.NewHTTPRequest(c).WithGet("https://api.eia.gov/series/1"),
		request.NewHTTPRequest(c).WithGet("https://api.eia.gov/series/2"),
		request.NewHTTPRequest(c).WithGet("https://api.eia.gov/series/3"),
	)

	_, err := apiRequest.Send(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, transport.GetTotalCallCount())
}

func TestAPIRequest_SendError(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	transport.RegisterResponder(
		"GET", "https://api.eia.gov/category/",
		httpmock.NewStringResponder(403, "Forbidden"),
	)

	httpRequest := request.NewHTTPRequest(c).WithGet("https://api.eia.gov/category/")

	var onErrorCalled bool
	apiRequest := request.
		NewAPIRequest(emptyPayload{}, httpRequest).
		WithOnSuccess(func(ctx context.Context, result emptyPayload) error {
			assert.Fail(t, "OnSuccess should not be called")
			return nil
		}).
		WithOnError(func(ctx context.Context, err error) error {
			onErrorCalled = true
			return err
		})

	_, err := apiRequest.Send(context.Background())
	assert.Error(t, err)
	assert.Equal(t, `request GET "https://api.eia.gov/category/" failed: 403 Forbidden`, err.Error())
	assert.True(t, onErrorCalled)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestAPIRequest_CallbackMapsError(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	transport.RegisterResponder(
		"GET", "https://api.eia.gov/category/",
		httpmock.NewStringResponder(200, `{}`),
	)

	httpRequest := request.NewHTTPRequest(c).WithGet("https://api.eia.gov/category/")

	// A success callback may turn the result into an error, for example
	// when the payload is missing an expected key
	apiRequest := request.
		NewAPIRequest(emptyPayload{}, httpRequest).
		WithOnSuccess(func(ctx context.Context, result emptyPayload) error {
			return errors.New("empty response")
		})

	_, err := apiRequest.Send(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "empty response", err.Error())
}
