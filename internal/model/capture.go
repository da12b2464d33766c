package model

import "time"

// Capture kinds.
const (
	KindSnapshot  = "snapshot"
	KindComposite = "composite"
)

// Capture represents one image file written by the rig.
type Capture struct {
	ID        int64     `json:"id"`
	PairID    string    `json:"pair_id"`
	Kind      string    `json:"kind"`
	Sequence  int       `json:"sequence"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

// CaptureFilter contains filtering options for querying captures.
type CaptureFilter struct {
	Kind   string
	PairID string
	Limit  int
	Offset int
}
