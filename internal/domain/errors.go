package domain

import "errors"

// Sentinel errors for capture and validation failures. Callers classify with
// errors.Is and map to an ErrorCode for the UI.
var (
	// ErrPermissionDenied: microphone access refused or no input device.
	ErrPermissionDenied = errors.New("microphone access denied or unavailable")

	// ErrEmptyCapture: recording produced no audio data; retry instead of
	// submitting empty audio.
	ErrEmptyCapture = errors.New("recording produced no audio data")

	// ErrUnsupportedFormat: artifact MIME type outside the whitelist.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrOversizedInput: artifact exceeds the upload size limit.
	ErrOversizedInput = errors.New("audio exceeds size limit")

	// ErrNotAuthenticated: operation requires a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ClassifyError maps an error to the UI error taxonomy. Unknown errors fall
// through to the given default code.
func ClassifyError(err error, fallback ErrorCode) ErrorCode {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ErrorCodePermission
	case errors.Is(err, ErrEmptyCapture):
		return ErrorCodeEmptyCapture
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrOversizedInput):
		return ErrorCodeValidation
	case errors.Is(err, ErrNotAuthenticated):
		return ErrorCodeAuth
	default:
		return fallback
	}
}
