package model

import "errors"

// ErrUnknownItem is returned by catalog lookups when a parsed item name has
// no catalog entry. Callers skip the message rather than fail the run.
var ErrUnknownItem = errors.New("unknown catalog item")
