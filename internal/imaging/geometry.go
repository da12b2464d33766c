package imaging

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Operator control limits for every MaskConfig field.
const (
	ControlMin = 0
	ControlMax = 500
)

// MaskConfig describes the square crop and the circular keep-region inside it.
// Values are not validated; out-of-frame squares clamp to the frame.
type MaskConfig struct {
	SquareSize   int
	SquareX      int
	SquareY      int
	CircleRadius int
}

// DefaultMaskConfig returns the rig's start-up geometry.
func DefaultMaskConfig() MaskConfig {
	return MaskConfig{
		SquareSize:   300,
		SquareX:      182,
		SquareY:      84,
		CircleRadius: 87,
	}
}

// CropRect returns the configured square clamped to bounds. Each coordinate
// is clamped on its own, so the result may have zero width or height.
func (c MaskConfig) CropRect(bounds image.Rectangle) image.Rectangle {
	r := image.Rectangle{
		Min: image.Point{
			X: clamp(c.SquareX, bounds.Min.X, bounds.Max.X),
			Y: clamp(c.SquareY, bounds.Min.Y, bounds.Max.Y),
		},
		Max: image.Point{
			X: clamp(c.SquareX+c.SquareSize, bounds.Min.X, bounds.Max.X),
			Y: clamp(c.SquareY+c.SquareSize, bounds.Min.Y, bounds.Max.Y),
		},
	}
	// A negative size inverts the span; image.Rect would swap it back.
	r.Max.X = max(r.Max.X, r.Min.X)
	r.Max.Y = max(r.Max.Y, r.Min.Y)
	return r
}

// ApplyMask crops frame to the configured square and blacks out everything
// outside the disk centered in the crop. The caller owns the returned Mat.
// A zero-area crop gives an empty Mat and no error.
func ApplyMask(frame gocv.Mat, cfg MaskConfig) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), nil
	}

	crop := cfg.CropRect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if crop.Empty() {
		return gocv.NewMat(), nil
	}

	region := frame.Region(crop)
	defer region.Close()

	w, h := crop.Dx(), crop.Dy()
	disk := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8U)
	defer disk.Close()
	if cfg.CircleRadius >= 0 {
		if err := gocv.Circle(&disk, image.Pt(w/2, h/2), cfg.CircleRadius, color.RGBA{255, 255, 255, 255}, -1); err != nil {
			return gocv.NewMat(), fmt.Errorf("failed to draw mask disk: %w", err)
		}
	}

	result := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, frame.Type())
	if err := gocv.BitwiseAndWithMask(region, region, &result, disk); err != nil {
		result.Close()
		return gocv.NewMat(), fmt.Errorf("failed to apply mask: %w", err)
	}
	return result, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
