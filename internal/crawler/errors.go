package crawler

import "errors"

var (
	// ErrNoRootURL is returned when a crawl is started without a root URL.
	ErrNoRootURL = errors.New("root URL not provided")

	// ErrInvalidRootURL is returned when the root is not an absolute
	// http or https URL.
	ErrInvalidRootURL = errors.New("invalid root URL")
)

// Sentinel strings returned by Spider.SiteMap in place of a JSON document.
const (
	// URLNotProvided is returned for an empty root.
	URLNotProvided = "URL NOT PROVIDED"

	// CouldNotProcess is returned when the crawl cannot start or its
	// result cannot be serialized.
	CouldNotProcess = "COULD NOT PROCESS REQUEST"
)
