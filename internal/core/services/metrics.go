package services

import "petwatch/internal/core/domain"

// nopMetrics is used when no collector is wired, mostly in tests.
type nopMetrics struct{}

func (nopMetrics) RecordFrameAcquired()                                 {}
func (nopMetrics) RecordFramesServed(int)                               {}
func (nopMetrics) RecordFrameDropped(string)                            {}
func (nopMetrics) RecordCaptureError()                                  {}
func (nopMetrics) RecordEncodeDuration(float64)                         {}
func (nopMetrics) RecordViewerAttached()                                {}
func (nopMetrics) RecordViewerDetached()                                {}
func (nopMetrics) RecordStateChange(domain.StreamState)                 {}
func (nopMetrics) RecordRecordingStarted()                              {}
func (nopMetrics) RecordRecordingFinalized(domain.RecordingSession)     {}
