package capture

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

var (
	ErrPermissionDenied  = errors.New("capture permission denied")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrDeviceBusy        = errors.New("capture device busy")
	ErrUnsupported       = errors.New("audio capture unsupported")
	ErrCapture           = errors.New("capture failed")

	ErrBusy         = errors.New("recorder is busy")
	ErrNotRecording = errors.New("recorder is not recording")
)

var taxonomy = []error{ErrPermissionDenied, ErrDeviceUnavailable, ErrDeviceBusy, ErrUnsupported, ErrCapture}

// Classify maps a device error onto the capture taxonomy. Errors already in
// the taxonomy are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range taxonomy {
		if errors.Is(err, known) {
			return err
		}
	}

	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %w", ErrDeviceBusy, err)
	case errors.Is(err, errors.ErrUnsupported):
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return fmt.Errorf("%w: %w", ErrCapture, err)
}
