package media

import (
	"strings"

	"github.com/juju/errors"
)

var (
	// ErrPermissionDenied means the OS denied access to the capture device.
	ErrPermissionDenied = errors.New("media permission denied")
	// ErrDeviceNotFound means no capture device matched the request.
	ErrDeviceNotFound = errors.New("media device not found")
	// ErrDeviceBusy means another process holds the capture device.
	ErrDeviceBusy = errors.New("media device busy")
	// ErrConstraintsUnsupported means no device satisfies the constraints.
	ErrConstraintsUnsupported = errors.New("media constraints unsupported")
)

// classifyCaptureError maps a driver error onto one of the exported
// sentinel errors so callers can branch without string matching. The
// original error stays attached as an annotation. Use multierr.Is to
// test the result against a sentinel.
func classifyCaptureError(err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "operation not permitted"):
		return errors.Annotatef(ErrPermissionDenied, "%s", err)
	case strings.Contains(msg, "busy"):
		return errors.Annotatef(ErrDeviceBusy, "%s", err)
	case strings.Contains(msg, "failed to find the best driver"):
		return errors.Annotatef(ErrConstraintsUnsupported, "%s", err)
	case strings.Contains(msg, "no driver"),
		strings.Contains(msg, "no such device"),
		strings.Contains(msg, "not found"):
		return errors.Annotatef(ErrDeviceNotFound, "%s", err)
	}

	return errors.Trace(err)
}
