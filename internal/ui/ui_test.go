package ui

import (
	"testing"

	"funduscam/internal/imaging"

	"gocv.io/x/gocv"
)

func TestClampControl(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0},
		{0, 0},
		{87, 87},
		{500, 500},
		{900, 500},
	}
	for _, tt := range tests {
		if got := clampControl(tt.in); got != tt.want {
			t.Errorf("clampControl(%d) = %d, expected %d", tt.in, got, tt.want)
		}
	}
}

func TestHeadless_FixedConfigAndNoKeys(t *testing.T) {
	cfg := imaging.DefaultMaskConfig()
	h := NewHeadless(cfg)

	if h.MaskConfig() != cfg {
		t.Errorf("MaskConfig() = %+v, expected %+v", h.MaskConfig(), cfg)
	}

	m := gocv.NewMat()
	defer m.Close()
	h.Show(m)
	h.ShowComposite(m)

	if k := h.WaitKey(0); k != -1 {
		t.Errorf("WaitKey() = %d, expected -1", k)
	}
}
