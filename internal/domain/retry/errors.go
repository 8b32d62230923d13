package retry

import "errors"

// ErrCanceled settles a handle whose Cancel was called before the operation
// completed.
var ErrCanceled = errors.New("retry: canceled")
