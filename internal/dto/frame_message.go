package dto

// Frame kinds sent to preview viewers.
const (
	KindPreview   = "preview"
	KindSnapshot  = "snapshot"
	KindComposite = "composite"
)

// FrameMessage is one JPEG frame pushed to viewers over the websocket.
type FrameMessage struct {
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
	Image string `json:"image"` // base64 JPEG
}
