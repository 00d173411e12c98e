package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Timeouts and limits of the built-in transports.
// The API serves small JSON documents, so short header timeouts are enough.
const (
	// DialTimeout is the maximum connection initialization time.
	DialTimeout = 3 * time.Second
	// KeepAlive is the interval between keep-alive probes.
	KeepAlive = 10 * time.Second
	// TLSHandshakeTimeout is the maximum duration of the TLS handshake.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is the maximum time to wait for the response headers.
	ResponseHeaderTimeout = 20 * time.Second
	// MaxConnectionsPerHost is the maximum number of open connections to one host.
	MaxConnectionsPerHost = 32
)

// Dialer creates the dialer shared by the built-in transports.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}

// DefaultTransport creates a transport with the limits above.
// HTTP2 is preferred, but the protocol is negotiated with the server.
func DefaultTransport() http.RoundTripper {
	dialer := Dialer()
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   MaxConnectionsPerHost,
	}
}

// HTTP2Transport creates a transport that speaks the HTTP2 protocol only.
func HTTP2Transport() http.RoundTripper {
	dialer := Dialer()
	return &http2.Transport{
		DialTLS: func(network, addr string, cfg *tls.Config) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, addr, cfg)
		},
		ReadIdleTimeout:  3 * time.Second,
		PingTimeout:      3 * time.Second,
		WriteByteTimeout: 3 * time.Second,
	}
}
