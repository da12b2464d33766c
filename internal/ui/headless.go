package ui

import (
	"time"

	"funduscam/internal/imaging"

	"gocv.io/x/gocv"
)

// Headless is the display for rigs without a screen: the mask geometry is
// fixed at start-up and nothing is drawn.
type Headless struct {
	cfg imaging.MaskConfig
}

func NewHeadless(cfg imaging.MaskConfig) *Headless {
	return &Headless{cfg: cfg}
}

func (h *Headless) MaskConfig() imaging.MaskConfig {
	return h.cfg
}

func (h *Headless) Show(gocv.Mat) {}

func (h *Headless) ShowComposite(gocv.Mat) {}

// WaitKey sleeps for delay milliseconds, like the GUI pump, and never reports a key.
func (h *Headless) WaitKey(delay int) int {
	if delay > 0 {
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}
	return -1
}

func (h *Headless) Close() error {
	return nil
}
