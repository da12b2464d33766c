package imaging

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Merge runs glare detection and removal on every image and composites the
// cleaned images in order. The caller owns the returned Mat.
func (d *GlareDetector) Merge(images []gocv.Mat) (gocv.Mat, error) {
	masks := make([]gocv.Mat, 0, len(images))
	cleaned := make([]gocv.Mat, 0, len(images))
	defer func() {
		for i := range masks {
			masks[i].Close()
		}
		for i := range cleaned {
			cleaned[i].Close()
		}
	}()

	for i, img := range images {
		mask, err := d.Detect(img)
		if err != nil {
			mask.Close()
			return gocv.NewMat(), fmt.Errorf("failed to detect glare in image %d: %w", i, err)
		}
		masks = append(masks, mask)

		clean, err := RemoveGlare(img, mask)
		if err != nil {
			clean.Close()
			return gocv.NewMat(), fmt.Errorf("failed to remove glare from image %d: %w", i, err)
		}
		cleaned = append(cleaned, clean)
	}

	return Composite(cleaned, masks)
}
