package geocode

import (
	"errors"
	"fmt"
)

// ErrNotFound means the geocoder answered but had no usable feature for the text.
var ErrNotFound = errors.New("location not found")

// StatusError captures non-2xx HTTP responses from the geocoding API.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s request failed: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
}
