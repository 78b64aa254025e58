package subscriber

import (
	"github.com/juju/errors"

	"github.com/hijra-meet/hijra-meet/client/sfu"
)

// Track error codes the SFU reports while a freshly published track has
// not propagated to all of its nodes yet. These resolve themselves, so
// attempts that hit them are retried. Every other code is terminal.
const (
	codeEmptyTrack    = "empty_track_error"
	codeTrackNotFound = "not_found_track_error"
	codeInternalError = "internal_error"
)

// retryable reports whether a failed pull attempt is worth repeating.
// Transient track errors and server-side or transport failures are,
// client errors are not.
func retryable(err error) bool {
	switch cause := errors.Cause(err).(type) {
	case *sfu.TrackError:
		switch cause.Code {
		case codeEmptyTrack, codeTrackNotFound, codeInternalError:
			return true
		}

		return false
	case *sfu.SignalingError:
		return cause.Status >= 500
	}

	// Transport errors (connection refused, timeouts) are transient.
	return true
}
