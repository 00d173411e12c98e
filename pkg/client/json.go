package client

import (
	"regexp"

	jsoniter "github.com/json-iterator/go"
)

// ContentTypeApplicationJSON is the content type of JSON request bodies.
const ContentTypeApplicationJSON = "application/json"

// json replaces the standard encoding/json library, it is faster for large responses.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// Structured suffix syntax, see RFC 6839.
// It matches "application/json" and vendor types such as "application/vnd.foo.api+json".
var jsonContentTypeRegexp = regexp.MustCompile(`^application/([a-zA-Z0-9\.\-]+\+)?json$`)

func isJSONContentType(contentType string) bool {
	return jsonContentTypeRegexp.MatchString(contentType)
}
