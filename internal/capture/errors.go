package capture

import "errors"

var (
	// ErrCameraAcquisition is non-fatal: the state machine stays in Idle
	// and the caller may retry.
	ErrCameraAcquisition = errors.New("failed to acquire camera device")

	// ErrEncodingUnsupported means no codec in the preference list is
	// supported by the recorder.
	ErrEncodingUnsupported = errors.New("no supported recording codec")

	// ErrInvalidTransition is returned for operations not valid in the
	// controller's current state.
	ErrInvalidTransition = errors.New("operation not valid in current state")

	// ErrCaptureModeBusy guards the one-capture-mode-at-a-time rule.
	ErrCaptureModeBusy = errors.New("another capture mode is active")

	// ErrBrokerOffline gates video recording while the broker status
	// signal reports disconnected.
	ErrBrokerOffline = errors.New("broker is disconnected")
)
