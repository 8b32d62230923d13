package explorer

import "errors"

// Sentinel kinds for explorer failures.
var (
	ErrNoMirrors = errors.New("no explorer mirrors configured")
	ErrBadShape  = errors.New("unexpected explorer response shape")
)
