package imaging

import (
	"fmt"

	"gocv.io/x/gocv"
)

const (
	// DefaultBrightnessThreshold flags pixels whose gray level is strictly above it.
	DefaultBrightnessThreshold = 218
	// GlareValue marks a glare pixel in a glare mask; clear pixels are 0.
	GlareValue = 255
)

// Purple reflection band in OpenCV HSV space (hue 0..179), inclusive.
var (
	PurpleLower = gocv.NewScalar(120, 50, 50, 0)
	PurpleUpper = gocv.NewScalar(150, 255, 255, 0)
)

// GlareDetector flags reflective overexposure by brightness or by the purple
// hue band the rig's illumination produces.
type GlareDetector struct {
	BrightnessThreshold int
	Lower               gocv.Scalar
	Upper               gocv.Scalar
}

// NewGlareDetector returns a detector with the given brightness threshold and
// the default purple band.
func NewGlareDetector(threshold int) *GlareDetector {
	return &GlareDetector{
		BrightnessThreshold: threshold,
		Lower:               PurpleLower,
		Upper:               PurpleUpper,
	}
}

// BrightnessMask flags pixels brighter than the threshold.
func (d *GlareDetector) BrightnessMask(img gocv.Mat) (gocv.Mat, error) {
	mask := gocv.NewMat()
	if img.Empty() {
		return mask, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(img, &gray, gocv.ColorBGRToGray); err != nil {
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	gocv.Threshold(gray, &mask, float32(d.BrightnessThreshold), GlareValue, gocv.ThresholdBinary)
	return mask, nil
}

// PurpleMask flags pixels whose HSV value falls inside the purple band.
func (d *GlareDetector) PurpleMask(img gocv.Mat) (gocv.Mat, error) {
	mask := gocv.NewMat()
	if img.Empty() {
		return mask, nil
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV); err != nil {
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("failed to convert image to HSV: %w", err)
	}

	if err := gocv.InRangeWithScalar(hsv, d.Lower, d.Upper, &mask); err != nil {
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("failed to apply purple band: %w", err)
	}
	return mask, nil
}

// Detect returns the combined glare mask of img: 255 where either criterion
// fires, 0 elsewhere.
func (d *GlareDetector) Detect(img gocv.Mat) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), nil
	}

	bright, err := d.BrightnessMask(img)
	if err != nil {
		return bright, err
	}
	defer bright.Close()
	purple, err := d.PurpleMask(img)
	if err != nil {
		return purple, err
	}
	defer purple.Close()

	combined := gocv.NewMat()
	if err := gocv.BitwiseOr(bright, purple, &combined); err != nil {
		combined.Close()
		return gocv.NewMat(), fmt.Errorf("failed to combine glare masks: %w", err)
	}
	return combined, nil
}

// RemoveGlare returns a copy of img with every glare-flagged pixel set to black.
func RemoveGlare(img, mask gocv.Mat) (gocv.Mat, error) {
	result := img.Clone()
	if img.Empty() || mask.Empty() {
		return result, nil
	}

	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), img.Rows(), img.Cols(), img.Type())
	defer black.Close()
	if err := black.CopyToWithMask(&result, mask); err != nil {
		result.Close()
		return gocv.NewMat(), fmt.Errorf("failed to black out glare: %w", err)
	}
	return result, nil
}
