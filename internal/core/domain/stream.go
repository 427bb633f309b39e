package domain

type StreamState int

const (
	StateIdle StreamState = iota
	StateStarting
	StateRunning
	StateDegraded
	StateStopping
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDegraded:
		return "degraded"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Active reports whether viewers may attach and recordings may start.
func (s StreamState) Active() bool {
	return s == StateRunning || s == StateDegraded
}

// StreamStatus is a point-in-time snapshot of the broadcaster. It is built
// without touching the acquisition loop.
type StreamStatus struct {
	State            StreamState `json:"-"`
	StateName        string      `json:"state"`
	Streaming        bool        `json:"streaming"`
	Initialized      bool        `json:"initialized"`
	ViewerCount      int         `json:"viewer_count"`
	RecordingActive  bool        `json:"recording"`
	CurrentRecording string      `json:"current_recording,omitempty"`
	FramesServed     uint64      `json:"frames_served"`
	FramesDropped    uint64      `json:"frames_dropped"`
	CaptureErrors    uint64      `json:"capture_errors"`
	Resolution       string      `json:"resolution,omitempty"`
	FrameRate        int         `json:"frame_rate,omitempty"`
	StorageEnabled   bool        `json:"storage_enabled"`
}
