package app

import "errors"

// ErrNotWhitelisted is the soft rejection for wallets whose identity root
// does not match the queried address.
var ErrNotWhitelisted = errors.New("not whitelisted")
