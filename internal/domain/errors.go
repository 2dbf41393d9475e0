package domain

import "errors"

var (
	// ErrExtractionFailed is returned when every content tier came back empty.
	ErrExtractionFailed = errors.New("extraction failed: no usable content")
	// ErrContentTooShort marks a tier result below the minimum viable length.
	ErrContentTooShort = errors.New("content too short")
	// ErrAccessDenied marks a fetched page that is a bot wall or block page.
	ErrAccessDenied = errors.New("access denied")
	// ErrCommandTimeout is returned when a browser command gets no response in time.
	ErrCommandTimeout = errors.New("browser command timeout")
	// ErrMalformedJob marks a queue payload that cannot be decoded.
	ErrMalformedJob = errors.New("malformed job payload")
)
