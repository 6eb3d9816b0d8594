// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates a storage or other unexpected failure.
//
// The underlying cause is logged where it happens and never reaches clients.
var ErrInternal = errors.New("internal error")
