package transport

// Event names carried on the vehicle link.
const (
	EventCommand        = "command"
	EventCommandStatus  = "command_status"
	EventIdle           = "idle"
	EventLatencyProblem = "latency_problem"
	EventPhoto          = "photo"
	EventDeletePhoto    = "delete_photo"
	EventVideoFrame     = "video_frame"
	EventAlbum          = "album"
)

// Event names used only between the operator console and this client.
const (
	EventGesture        = "gesture"
	EventMode           = "mode"
	EventPhotoTaken     = "photo_taken"
	EventLatencyWarning = "latency_warning"
)
