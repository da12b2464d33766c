package ui

import (
	"funduscam/internal/imaging"

	"gocv.io/x/gocv"
)

const (
	ProcessedWindow = "Processed Frame"
	MergedWindow    = "Merged Image"
)

// Controls is the operator's HighGUI window: the masked live frame with four
// trackbars, plus a second window for the latest composite. It must be used
// from the goroutine running the capture loop.
type Controls struct {
	window *gocv.Window
	merged *gocv.Window

	squareSize   *gocv.Trackbar
	circleRadius *gocv.Trackbar
	squareX      *gocv.Trackbar
	squareY      *gocv.Trackbar
}

// NewControls opens the window and positions the trackbars at initial.
func NewControls(initial imaging.MaskConfig) *Controls {
	window := gocv.NewWindow(ProcessedWindow)

	c := &Controls{
		window:       window,
		squareSize:   newTrackbar(window, "Square Size", initial.SquareSize),
		circleRadius: newTrackbar(window, "Circle Radius", initial.CircleRadius),
		squareX:      newTrackbar(window, "Square X", initial.SquareX),
		squareY:      newTrackbar(window, "Square Y", initial.SquareY),
	}
	return c
}

func newTrackbar(w *gocv.Window, name string, pos int) *gocv.Trackbar {
	tb := w.CreateTrackbar(name, imaging.ControlMax)
	tb.SetMin(imaging.ControlMin)
	tb.SetPos(clampControl(pos))
	return tb
}

func clampControl(v int) int {
	return max(imaging.ControlMin, min(v, imaging.ControlMax))
}

// MaskConfig reads the current trackbar positions.
func (c *Controls) MaskConfig() imaging.MaskConfig {
	return imaging.MaskConfig{
		SquareSize:   c.squareSize.GetPos(),
		SquareX:      c.squareX.GetPos(),
		SquareY:      c.squareY.GetPos(),
		CircleRadius: c.circleRadius.GetPos(),
	}
}

// Show displays the masked live frame. Empty frames (degenerate crops) are
// not shown; the window keeps the previous image.
func (c *Controls) Show(frame gocv.Mat) {
	if frame.Empty() {
		return
	}
	c.window.IMShow(frame)
}

// ShowComposite displays img in the merged-image window, opening it on first use.
func (c *Controls) ShowComposite(img gocv.Mat) {
	if img.Empty() {
		return
	}
	if c.merged == nil {
		c.merged = gocv.NewWindow(MergedWindow)
	}
	c.merged.IMShow(img)
}

func (c *Controls) WaitKey(delay int) int {
	return c.window.WaitKey(delay)
}

// Close destroys both windows.
func (c *Controls) Close() error {
	if c.merged != nil {
		c.merged.Close()
	}
	return c.window.Close()
}
