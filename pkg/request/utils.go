package request

import (
	jsonlib "encoding/json"
	"fmt"
	"net/url"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

// ToFormBody flattens a JSON like map to a form body map, every value is mapped to a string.
// A slice value becomes "key[0]", "key[1]", ..., a map value becomes "key[name]".
func ToFormBody(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch v := v.(type) {
		case []string:
			for i, s := range v {
				out[fmt.Sprintf("%s[%d]", k, i)] = s
			}
		case map[string]string:
			for name, s := range v {
				out[fmt.Sprintf("%s[%s]", k, name)] = s
			}
		default:
			out[k] = castToString(v)
		}
	}
	return out
}

func cloneURLValues(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, values := range in {
		out[k] = append([]string(nil), values...)
	}
	return out
}

func castToString(v any) string {
	// The standard json library is used for the ordered map,
	// jsoniter returns non-compact JSON with the custom OrderedMap.MarshalJSON method
	if m, ok := v.(*orderedmap.OrderedMap); ok {
		out, err := jsonlib.Marshal(m)
		if err != nil {
			panic(fmt.Errorf(`cannot cast %T to string %w`, v, err))
		}
		return string(out)
	}

	out, err := cast.ToStringE(v)
	if err != nil {
		panic(fmt.Errorf(`cannot cast %T to string %w`, v, err))
	}
	return out
}
