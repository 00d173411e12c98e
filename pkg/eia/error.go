package eia

import (
	"fmt"
	"net/http"
)

// APIError represents the error envelope returned by the EIA API, for example
// an invalid API key: {"data":{"error":"invalid or missing api_key. ..."}}.
type APIError struct {
	Data struct {
		Message string `json:"error"`
	} `json:"data"`
	request  *http.Request
	response *http.Response
}

func (e *APIError) Error() string {
	if e.request == nil {
		panic(fmt.Errorf("http request is not set"))
	}
	if e.response == nil {
		panic(fmt.Errorf("http response is not set"))
	}
	return fmt.Sprintf(`%s, method: "%s", url: "%s", httpCode: "%d"`, e.Data.Message, e.request.Method, e.request.URL, e.StatusCode())
}

// ErrorUserMessage returns error message for end user.
func (e *APIError) ErrorUserMessage() string {
	return e.Data.Message
}

// StatusCode returns HTTP status code.
func (e *APIError) StatusCode() int {
	return e.response.StatusCode
}

// SetRequest method allows injection of HTTP request to the error, it implements client.errorWithRequest.
func (e *APIError) SetRequest(request *http.Request) {
	e.request = request
}

// SetResponse method allows injection of HTTP response to the error, it implements client.errorWithResponse.
func (e *APIError) SetResponse(response *http.Response) {
	e.response = response
}
