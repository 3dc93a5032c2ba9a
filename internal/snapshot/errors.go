package snapshot

import (
	"fmt"
	"strings"
)

// UpstreamCause distinguishes why the store could not deliver a
// snapshot. The distinction is user-visible: permission problems,
// configuration problems (missing table/index) and everything else get
// different messages.
type UpstreamCause string

const (
	CausePermission    UpstreamCause = "permission"
	CauseConfiguration UpstreamCause = "configuration"
	CauseGeneric       UpstreamCause = "generic"
)

// UpstreamError wraps a failed snapshot load. An aggregation pass that
// hits one must stop and surface it; it never proceeds on partial or
// stale data as if it were valid.
type UpstreamError struct {
	Collection Collection
	Cause      UpstreamCause
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s unavailable (%s): %v", e.Collection, e.Cause, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ClassifyUpstream wraps a store error with its user-visible cause.
func ClassifyUpstream(col Collection, err error) *UpstreamError {
	return &UpstreamError{Collection: col, Cause: causeOf(err), Err: err}
}

func causeOf(err error) UpstreamCause {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "access denied"), strings.Contains(msg, "readonly database"):
		return CausePermission
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such index"), strings.Contains(msg, "no such column"), strings.Contains(msg, "missing index"):
		return CauseConfiguration
	default:
		return CauseGeneric
	}
}
