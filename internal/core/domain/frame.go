package domain

import "time"

type ViewerID string
type RecordingID string

// Frame is one encoded (JPEG) camera frame. Seq is monotonically increasing
// per stream session and resets to zero on a new session.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Data      []byte
}
