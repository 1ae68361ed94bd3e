package tracker

import "strings"

// Mode selects the frame source of a tracking run.
type Mode int

// The known modes.
const (
	ModeUnknown Mode = iota // If an unknown mode is specified.
	ModeVideo               // Decoded video file.
	ModeCamera              // Live camera.
	ModeScreen              // Live screen region.
	ModeExit                // Leave the menu.
)

func (m Mode) String() string {
	switch m {
	case ModeVideo:
		return "video"
	case ModeCamera:
		return "camera"
	case ModeScreen:
		return "screen"
	case ModeExit:
		return "exit"
	}
	return "unknown"
}

// ModeFrom parses a mode name as returned by Mode.String.
func ModeFrom(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video":
		return ModeVideo
	case "camera", "webcam":
		return ModeCamera
	case "screen":
		return ModeScreen
	case "exit":
		return ModeExit
	}
	return ModeUnknown
}
