package media

import (
	"testing"

	"github.com/hijra-meet/hijra-meet/client/multierr"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassifyCaptureError(t *testing.T) {
	testCases := []struct {
		message  string
		sentinel error
	}{
		{"v4l2: permission denied", ErrPermissionDenied},
		{"open /dev/video0: operation not permitted", ErrPermissionDenied},
		{"device or resource busy", ErrDeviceBusy},
		{"failed to find the best driver that fits the constraints", ErrConstraintsUnsupported},
		{"no driver found", ErrDeviceNotFound},
		{"open /dev/video0: no such device", ErrDeviceNotFound},
		{"camera not found", ErrDeviceNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.message, func(t *testing.T) {
			err := classifyCaptureError(errors.New(tc.message))

			assert.True(t, multierr.Is(err, tc.sentinel), "got: %v", err)
			// The driver detail survives classification.
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestClassifyCaptureError_Unrecognized(t *testing.T) {
	original := errors.New("something exploded")

	err := classifyCaptureError(original)

	assert.Equal(t, original, errors.Cause(err))
}
