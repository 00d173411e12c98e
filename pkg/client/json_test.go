package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsJSONContentType(t *testing.T) {
	t.Parallel()

	// Plain and vendor JSON types
	assert.True(t, isJSONContentType("application/json"))
	assert.True(t, isJSONContentType("application/vnd.eia.api+json"))
	assert.True(t, isJSONContentType("application/x-resource+json"))

	// Everything else is passed through as a string
	assert.False(t, isJSONContentType(""))
	assert.False(t, isJSONContentType("text/plain"))
	assert.False(t, isJSONContentType("application/yaml"))
	assert.False(t, isJSONContentType("application/vnd.eia.api+yaml"))
	assert.False(t, isJSONContentType("application/json-patch"))
	assert.False(t, isJSONContentType("application/foo-json"))
}
