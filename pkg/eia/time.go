package eia

import (
	"encoding/json"
	"time"

	"github.com/relvacode/iso8601"
)

// TimeFormat is the timestamp format used by the API, for example "2020-10-27T12:18:42-0400".
// The zone offset has no colon, so it is not the RFC 3339 format.
const TimeFormat = "2006-01-02T15:04:05Z0700"

// Time is a timestamp in the API TimeFormat.
type Time struct {
	time.Time
}

// ParseTime parses a timestamp in the API TimeFormat.
func ParseTime(value string) (Time, error) {
	parsed, err := iso8601.ParseString(value)
	if err != nil {
		return Time{}, err
	}
	return Time{Time: parsed}, nil
}

func (t Time) String() string {
	return t.Format(TimeFormat)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimeFormat))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*t = Time{}
		return nil
	}
	parsed, err := iso8601.ParseString(str)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
