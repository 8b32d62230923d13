package subgraph

import "errors"

// ErrBadShape marks malformed or unexpectedly shaped subgraph responses;
// the retry layer treats these as transient.
var ErrBadShape = errors.New("unexpected subgraph response shape")
