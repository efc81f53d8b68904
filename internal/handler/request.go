package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// flexString accepts a JSON string, number, boolean or null and keeps its
// text form. Form fields posted by the browser arrive with mixed types.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = flexString(strconv.FormatBool(t))
	case float64:
		*f = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return fmt.Errorf("unsupported value %s", data)
	}
	return nil
}

func (f flexString) String() string {
	return string(f)
}

// emailRequest is the body of the draft and send endpoints.
type emailRequest struct {
	EmailID flexString `json:"emailId"`

	// Generation is the email list generation the id was taken from.
	// Zero skips the staleness check.
	Generation uint64 `json:"generation,omitempty"`
}
