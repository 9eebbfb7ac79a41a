package ports

import "errors"

// ErrUnsupported is returned by a backend that does not implement an operation.
var ErrUnsupported = errors.New("operation not supported by this compiler backend")
