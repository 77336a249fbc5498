package fetch

import "errors"

var (
	// ErrStatus is returned for responses outside the 2xx range.
	ErrStatus = errors.New("unexpected response status")

	// ErrNotDocument is returned when the response is not an HTML document.
	ErrNotDocument = errors.New("response is not an HTML document")
)
