package irriboard

import (
	"errors"

	"github.com/filippods/irriboard/internal/action"
	"github.com/filippods/irriboard/internal/backend"
)

// ErrBusy is returned by the console's command methods when another command
// is still in flight. The backend is not contacted.
var ErrBusy = action.ErrBusy

// IsTransport reports whether err is a network/HTTP-level failure. Transport
// failures are the retryable class; a command method that returns one has
// already exhausted its retries.
func IsTransport(err error) bool {
	var te *backend.TransportError
	return errors.As(err, &te)
}

// IsMalformed reports whether err came from a response that arrived but
// could not be decoded into the expected shape.
func IsMalformed(err error) bool {
	var me *backend.MalformedError
	return errors.As(err, &me)
}

// IsRejection reports whether err is a definitive backend refusal
// ({"success": false}). Rejections are never retried.
func IsRejection(err error) bool {
	var re *backend.RejectionError
	return errors.As(err, &re)
}

// RejectionMessage returns the server-supplied reason carried by a
// rejection, or the empty string if err is not one.
func RejectionMessage(err error) string {
	var re *backend.RejectionError
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}
