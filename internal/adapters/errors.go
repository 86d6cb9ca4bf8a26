package adapters

import "github.com/coinwatch/confluence/internal/errkind"

// Wrap builds a classified adapter error. Every adapter call that fails
// should return one of these kinds, per spec.md §4.1's contract: transport
// error or non-2xx -> TransientUpstream, malformed payload -> UpstreamSchema,
// self-throttling -> RateLimited.
func Wrap(kind errkind.Kind, op string, cause error) error {
	return errkind.New(kind, op, cause, nil)
}
