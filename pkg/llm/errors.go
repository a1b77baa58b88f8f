package llm

import "errors"

// Sentinel errors for completion operations
var (
	// ErrRequestFailed indicates the provider request failed
	ErrRequestFailed = errors.New("completion request failed")

	// ErrEmptyResponse indicates the provider returned no choices
	ErrEmptyResponse = errors.New("completion returned an empty response")
)
