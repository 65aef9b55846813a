package schedule

import "errors"

// Sentinel errors shared by the resolver, the gateways and the HTTP layer.
// Gateways wrap them with %w; callers classify with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConnection      = errors.New("upstream connection failure")
	ErrTimeout         = errors.New("upstream timeout")
	ErrInvalidInterval = errors.New("invalid interval")
)
