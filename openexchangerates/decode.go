package openexchangerates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// APIStatus is the account status reported by the usage endpoint.
type APIStatus int

const (
	StatusUnknown APIStatus = iota
	StatusActive
	StatusAccessRestricted
)

// ParseAPIStatus maps the API's status text onto APIStatus. Matching ignores
// case and anything unrecognised maps to StatusUnknown.
func ParseAPIStatus(value string) APIStatus {
	switch {
	case strings.EqualFold(value, "active"):
		return StatusActive
	case strings.EqualFold(value, "access_restricted"):
		return StatusAccessRestricted
	default:
		return StatusUnknown
	}
}

func (status APIStatus) String() string {
	switch status {
	case StatusActive:
		return "active"
	case StatusAccessRestricted:
		return "access_restricted"
	default:
		return "unknown"
	}
}

// UnmarshalJSON never fails: non-string input decodes to StatusUnknown.
func (status *APIStatus) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		*status = StatusUnknown
		return nil
	}
	*status = ParseAPIStatus(value)
	return nil
}

// MarshalJSON is not supported; APIStatus is only ever read from the API.
func (status APIStatus) MarshalJSON() ([]byte, error) {
	return nil, ErrNotImplemented
}

// UnixTime is a point in time sent by the API as integer Unix seconds.
type UnixTime struct {
	time.Time
}

// UnmarshalJSON reads an integer number of seconds since the epoch as a UTC time.
func (unixTime *UnixTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	seconds, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return fmt.Errorf("unix timestamp must be an integer, got %s", trimmed)
	}

	unixTime.Time = time.Unix(seconds, 0).UTC()
	return nil
}

// MarshalJSON is not supported; UnixTime is only ever read from the API.
func (unixTime UnixTime) MarshalJSON() ([]byte, error) {
	return nil, ErrNotImplemented
}
