package generation

import "errors"

// Normalized upstream failure classes. Handlers map these to HTTP
// statuses and generic user-facing text; raw upstream payloads and
// credentials never leave this package.
var (
	ErrUpstreamAuth    = errors.New("upstream rejected credentials")
	ErrUpstreamTimeout = errors.New("upstream call timed out")
	ErrUpstreamGeneric = errors.New("upstream call failed")
)
