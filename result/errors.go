package result

import (
	"context"
	"errors"
	"net"
	"os"
)

// Reason classifies the outcome of a single probe.
type Reason string

const (
	ReasonOK          Reason = "OK"
	ReasonTimeout     Reason = "TIMEOUT"
	ReasonUnreachable Reason = "UNREACHABLE"
	ReasonBadStatus   Reason = "BAD_STATUS"
	ReasonCrashed     Reason = "CRASHED"
	ReasonEmpty       Reason = "EMPTY_RESULT"
)

// AllReasons lists every reason in display order (most to least actionable).
var AllReasons = []Reason{
	ReasonTimeout,
	ReasonUnreachable,
	ReasonBadStatus,
	ReasonCrashed,
	ReasonEmpty,
	ReasonOK,
}

// ClassifyError determines the reason for a failed HTTP probe from the
// transport error and the final status code. A nil error with status 200 is OK.
func ClassifyError(err error, statusCode int) Reason {
	if err == nil {
		if statusCode == 200 {
			return ReasonOK
		}
		return ReasonBadStatus
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ReasonTimeout
	}

	// net/http wraps client timeouts in *url.Error, which implements net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	return ReasonUnreachable
}

// FormatReason returns a human-readable label for a reason.
func FormatReason(r Reason) string {
	switch r {
	case ReasonOK:
		return "Alive"
	case ReasonTimeout:
		return "Timeouts"
	case ReasonUnreachable:
		return "Unreachable"
	case ReasonBadStatus:
		return "Bad Status"
	case ReasonCrashed:
		return "Crashed Workers"
	case ReasonEmpty:
		return "No Frame Read"
	default:
		return "Other"
	}
}
