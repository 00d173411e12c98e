package client_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/http2"

	"github.com/eiadata/go-client/pkg/client"
)

func TestDefaultTransport(t *testing.T) {
	t.Parallel()

	transport, ok := client.DefaultTransport().(*http.Transport)
	assert.True(t, ok)
	assert.True(t, transport.ForceAttemptHTTP2)
	assert.Equal(t, client.MaxConnectionsPerHost, transport.MaxConnsPerHost)
	assert.Equal(t, client.MaxConnectionsPerHost, transport.MaxIdleConnsPerHost)
	assert.Equal(t, client.ResponseHeaderTimeout, transport.ResponseHeaderTimeout)
	assert.Equal(t, client.TLSHandshakeTimeout, transport.TLSHandshakeTimeout)
}

func TestHTTP2Transport(t *testing.T) {
	t.Parallel()

	transport, ok := client.HTTP2Transport().(*http2.Transport)
	assert.True(t, ok)
	assert.NotNil(t, transport.DialTLS)
}

func TestDialer(t *testing.T) {
	t.Parallel()

	dialer := client.Dialer()
	assert.Equal(t, client.DialTimeout, dialer.Timeout)
	assert.Equal(t, client.KeepAlive, dialer.KeepAlive)
}
