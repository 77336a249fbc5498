package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoRoot is returned when no root URL is given.
	ErrNoRoot = errors.New("no root URL specified")

	// ErrInvalidRate is returned when the requests-per-second value is not positive.
	ErrInvalidRate = errors.New("invalid rate: must be a positive number of requests per second")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when the per-fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDeadline is returned when the overall deadline is negative.
	// Zero disables the deadline.
	ErrInvalidDeadline = errors.New("invalid deadline: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	// Zero means unlimited.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoOutputFile is returned when the sitemap output path is empty.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrInvalidRateArgument is returned by ParseRate for a missing or
	// non-numeric rate.
	ErrInvalidRateArgument = errors.New("rate is not a positive integer")
)
