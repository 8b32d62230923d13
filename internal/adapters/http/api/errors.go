package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrMethodNotAllowed = errors.New("unsupported request method")
	ErrBadAddress       = errors.New("missing or invalid wallet address")
)
