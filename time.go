package gcontacts

import (
	"bytes"
	"encoding/json"
	"time"
)

// Time supports unmarshalling times returned by the contacts API, which
// wraps them as {"$t": "2024-01-15T10:30:00.000Z"}. Bare strings are
// accepted as well.
type Time struct {
	time.Time
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (m *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		return nil
	}

	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var v struct {
			T *Time `json:"$t"`
		}
		v.T = m

		return json.Unmarshal(data, &v)
	}

	return json.Unmarshal(data, &m.Time)
}
