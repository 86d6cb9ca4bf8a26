// Package errkind classifies failures the pipeline can encounter so that job
// supervisors can react by kind instead of by matching error strings.
package errkind

import "fmt"

// Kind is one of the failure classes enumerated in the error handling design.
type Kind string

const (
	// TransientUpstream covers HTTP timeouts, 5xx responses, and rate limits
	// that were already retried and still failed. Never fatal to a job.
	TransientUpstream Kind = "transient_upstream"
	// UpstreamSchema covers a malformed response payload from an adapter.
	UpstreamSchema Kind = "upstream_schema"
	// RateLimited is returned by an adapter's own self-throttling when a
	// caller would exceed its configured inter-call spacing or concurrency cap.
	RateLimited Kind = "rate_limited"
	// PriceMissing means every configured price source was exhausted.
	PriceMissing Kind = "price_missing"
	// StoreUnavailable covers the primary store or the confluence window
	// store being unreachable.
	StoreUnavailable Kind = "store_unavailable"
	// PolicyReject means a token failed the safety gate or a transfer failed
	// the DEX-swap heuristic. Expected, not alarmed on.
	PolicyReject Kind = "policy_reject"
	// Fatal means an invariant was violated (e.g. conflicting tx_hash body).
	// The offending record is quarantined and the job continues.
	Fatal Kind = "fatal"
)

// Error wraps a Kind, an optional cause, and free-form context fields.
type Error struct {
	Kind    Kind
	Op      string // component/operation that raised it, e.g. "discovery.classify"
	Context map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with the given kind and operation name.
func New(kind Kind, op string, cause error, ctx map[string]any) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause, Context: ctx}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ek, ok := err.(*Error); ok {
			e = ek
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}

// Recoverable reports whether a job should treat err as a soft failure that
// should not abort the whole run (only StoreUnavailable ends a run; a Fatal
// record is quarantined and the job continues).
func Recoverable(err error) bool {
	return !Is(err, StoreUnavailable)
}
