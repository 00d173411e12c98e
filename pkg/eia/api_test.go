package eia_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/eiadata/go-client/pkg/client"
	"github.com/eiadata/go-client/pkg/eia"
)

func jsonResponse(status int, body string) *http.Response {
	response := httpmock.NewStringResponse(status, body)
	response.Header.Set("Content-Type", "application/json")
	return response
}

func jsonResponder(status int, body string) httpmock.Responder {
	return httpmock.ResponderFromResponse(jsonResponse(status, body))
}

func mockedAPI(t *testing.T, opts ...eia.APIOption) (*eia.API, *httpmock.MockTransport) {
	t.Helper()
	c, transport := client.NewMockedClient()
	api, err := eia.NewAPI(append([]eia.APIOption{eia.WithAPIKey("my-key"), eia.WithClient(&c)}, opts...)...)
	assert.NoError(t, err)
	return api, transport
}

func TestNewAPI_MissingKey(t *testing.T) {
	t.Setenv(eia.APIKeyEnvName, "")

	c, transport := client.NewMockedClient()
	api, err := eia.NewAPI(eia.WithClient(&c))
	assert.Nil(t, api)
	assert.ErrorIs(t, err, eia.ErrAPIKeyMissing)

	// Construction fails before any network activity
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestNewAPI_KeyFromEnv(t *testing.T) {
	t.Setenv(eia.APIKeyEnvName, "env-key")

	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://api.eia.gov/category/", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "env-key", req.URL.Query().Get("api_key"))
		assert.Equal(t, "json", req.URL.Query().Get("out"))
		return jsonResponse(200, `{"category":{"category_id":"371","name":"Root"}}`), nil
	})

	api, err := eia.NewAPI(eia.WithClient(&c))
	assert.NoError(t, err)

	_, err = api.Category("").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestFetch_CallerParamsWin(t *testing.T) {
	t.Parallel()

	api, transport := mockedAPI(t)
	transport.RegisterResponder("GET", "https://api.eia.gov/category/", func(req *http.Request) (*http.Response, error) {
		// The caller value replaced the default "out=json"
		assert.Equal(t, "xml", req.URL.Query().Get("out"))
		assert.Equal(t, "my-key", req.URL.Query().Get("api_key"))
		assert.Equal(t, "476336", req.URL.Query().Get("category_id"))
		return jsonResponse(200, `{"request":{"command":"category"}}`), nil
	})

	result, err := api.Fetch(context.Background(), eia.CategoryEndpoint, map[string]string{
		"category_id": "476336",
		"out":         "xml",
	})
	assert.NoError(t, err)

	// The response mapping is returned as-is
	value, found := result.Get("request")
	assert.True(t, found)
	assert.NotNil(t, value)
}

func TestSubmit_DefaultsInQueryDataInBody(t *testing.T) {
	t.Parallel()

	api, transport := mockedAPI(t)
	transport.RegisterResponder("POST", "https://api.eia.gov/series/", func(req *http.Request) (*http.Response, error) {
		// Defaults stay in the query string
		assert.Equal(t, "my-key", req.URL.Query().Get("api_key"))
		assert.Equal(t, "json", req.URL.Query().Get("out"))
		assert.Empty(t, req.URL.Query().Get("series_id"))

		// Caller data is form-encoded in the body
		assert.NoError(t, req.ParseForm())
		assert.Equal(t, "AAA;BBB", req.PostForm.Get("series_id"))
		assert.Contains(t, req.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		return jsonResponse(200, `{"series":[]}`), nil
	})

	result, err := api.Submit(context.Background(), eia.SeriesEndpoint, map[string]any{"series_id": "AAA;BBB"})
	assert.NoError(t, err)

	value, found := result.Get("series")
	assert.True(t, found)
	assert.Equal(t, []any{}, value)
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	api, transport := mockedAPI(t)
	transport.RegisterResponder("POST", "https://api.eia.gov/series/", jsonResponder(
		403,
		`{"data":{"error":"invalid or missing api_key"}}`,
	))

	_, err := api.Series("AAA").List(context.Background())
	assert.Error(t, err)

	apiErr := &eia.APIError{}
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid or missing api_key", apiErr.ErrorUserMessage())
	assert.Equal(t, 403, apiErr.StatusCode())
	assert.Contains(t, apiErr.Error(), `invalid or missing api_key, method: "POST", url: "https://api.eia.gov/series/`)
}
