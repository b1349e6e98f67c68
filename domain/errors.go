package domain

import "errors"

// Lookup sentinels shared by repositories, services, and handlers so
// callers can branch with errors.Is instead of matching message text.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrBatchNotFound   = errors.New("batch not found")
)
