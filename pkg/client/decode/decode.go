// Package decode decompresses HTTP response bodies according to the Content-Encoding header.
package decode

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decode wraps the body with a reader decompressing the given content encoding.
// An unknown or empty encoding returns the body unchanged.
func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(contentEncoding) {
	case "gzip":
		r, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("cannot decode gzip: %w", err)
		}
		return r, nil
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	}
	return body, nil
}
