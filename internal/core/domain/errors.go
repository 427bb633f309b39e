package domain

import "errors"

var (
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	ErrCaptureFailed     = errors.New("frame capture failed")
	ErrEncodingFailed    = errors.New("frame encoding failed")
	ErrStreamNotRunning  = errors.New("stream not running")
	ErrStreamBusy        = errors.New("stream session already in transition")
	ErrConfigConflict    = errors.New("requested configuration conflicts with running session")
	ErrRecordingActive   = errors.New("recording already active")
	ErrNoActiveRecording = errors.New("no active recording")
	ErrStorageDisabled   = errors.New("storage not enabled")
	ErrRecordNotFound    = errors.New("recording record not found")
)
