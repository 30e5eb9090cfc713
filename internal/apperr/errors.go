// Package apperr defines the closed error taxonomy shared by every backend
// component: one sentinel or struct type per failure class, so callers can
// errors.Is/errors.As down to the exact failure instead of matching strings.
package apperr

import "fmt"

// Sentinel errors for cases with no extra payload.
var (
	ErrConfig                = fmt.Errorf("config: malformed or missing configuration")
	ErrHTTPRequest           = fmt.Errorf("http: transport or non-2xx response")
	ErrSerialization         = fmt.Errorf("serialization: encode/decode failure")
	ErrIO                    = fmt.Errorf("io: filesystem operation failed")
	ErrAudio                 = fmt.Errorf("audio: generic audio subsystem error")
	ErrAudioNotRecording     = fmt.Errorf("audio: not recording")
	ErrAudioAlreadyRecording = fmt.Errorf("audio: already recording")
	ErrModel                 = fmt.Errorf("model: generic model error")
	ErrModelNotFound         = fmt.Errorf("model: not found in catalog")
	ErrModelDownload         = fmt.Errorf("model: download failed")
	ErrHardware              = fmt.Errorf("hardware: detection failed")
	ErrWhisper               = fmt.Errorf("whisper: inference backend error")
	ErrClipboard             = fmt.Errorf("clipboard: operation failed")
	ErrInputSimulation       = fmt.Errorf("input: synthetic keystroke failed")
)

// NetworkBlockedError is returned when the privacy guard refuses an
// outbound request, either because local-only mode is active or the host
// is not on the allowlist.
type NetworkBlockedError struct {
	Reason string
}

func (e *NetworkBlockedError) Error() string {
	return fmt.Sprintf("network blocked: %s", e.Reason)
}

// AudioDeviceError wraps a device-layer failure surfaced by the native
// capture backend (open/start/stop/callback errors).
type AudioDeviceError struct {
	Msg string
}

func (e *AudioDeviceError) Error() string { return fmt.Sprintf("audio device: %s", e.Msg) }

// AudioStateTransitionError is returned when a caller requests an illegal
// state transition (e.g. stop while Idle).
type AudioStateTransitionError struct {
	From, To string
}

func (e *AudioStateTransitionError) Error() string {
	return fmt.Sprintf("audio: illegal transition %s -> %s", e.From, e.To)
}

// ModelVerificationError is returned when a downloaded model's SHA-256
// digest does not match the catalog's expected value.
type ModelVerificationError struct {
	Expected, Actual string
}

func (e *ModelVerificationError) Error() string {
	return fmt.Sprintf("model verification failed: expected %s, got %s", e.Expected, e.Actual)
}
