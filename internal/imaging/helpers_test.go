package imaging

import (
	"testing"

	"gocv.io/x/gocv"
)

// solid returns a rows x cols BGR image filled with one color.
func solid(t *testing.T, rows, cols int, b, g, r float64) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

// maskOf returns a rows x cols single-channel mask, 0 everywhere.
func maskOf(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
	t.Cleanup(func() { m.Close() })
	return m
}

func setPixel(m *gocv.Mat, row, col int, b, g, r uint8) {
	m.SetUCharAt(row, col*3, b)
	m.SetUCharAt(row, col*3+1, g)
	m.SetUCharAt(row, col*3+2, r)
}

func fillBlock(m *gocv.Mat, row0, col0, rows, cols int, b, g, r uint8) {
	for row := row0; row < row0+rows; row++ {
		for col := col0; col < col0+cols; col++ {
			setPixel(m, row, col, b, g, r)
		}
	}
}

func pixel(m gocv.Mat, row, col int) [3]uint8 {
	v := m.GetVecbAt(row, col)
	return [3]uint8{v[0], v[1], v[2]}
}

func assertPixel(t *testing.T, m gocv.Mat, row, col int, want [3]uint8) {
	t.Helper()
	if got := pixel(m, row, col); got != want {
		t.Errorf("pixel(%d,%d) = %v, expected %v", row, col, got, want)
	}
}

var (
	white  = [3]uint8{255, 255, 255}
	black  = [3]uint8{0, 0, 0}
	purple = [3]uint8{200, 50, 150} // BGR, hue 140 in OpenCV HSV
)

func mustApplyMask(t *testing.T, frame gocv.Mat, cfg MaskConfig) gocv.Mat {
	t.Helper()
	out, err := ApplyMask(frame, cfg)
	if err != nil {
		t.Fatalf("ApplyMask failed: %v", err)
	}
	return out
}

func mustDetect(t *testing.T, d *GlareDetector, img gocv.Mat) gocv.Mat {
	t.Helper()
	mask, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	return mask
}

func mustBrightnessMask(t *testing.T, d *GlareDetector, img gocv.Mat) gocv.Mat {
	t.Helper()
	mask, err := d.BrightnessMask(img)
	if err != nil {
		t.Fatalf("BrightnessMask failed: %v", err)
	}
	return mask
}

func mustPurpleMask(t *testing.T, d *GlareDetector, img gocv.Mat) gocv.Mat {
	t.Helper()
	mask, err := d.PurpleMask(img)
	if err != nil {
		t.Fatalf("PurpleMask failed: %v", err)
	}
	return mask
}

func mustRemoveGlare(t *testing.T, img, mask gocv.Mat) gocv.Mat {
	t.Helper()
	out, err := RemoveGlare(img, mask)
	if err != nil {
		t.Fatalf("RemoveGlare failed: %v", err)
	}
	return out
}
