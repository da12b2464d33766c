package imaging

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	ErrNoImages          = errors.New("no images to composite")
	ErrMaskCountMismatch = errors.New("image and mask counts differ")
	ErrExtentMismatch    = errors.New("image extents differ")
)

// Composite merges images using their glare masks. For every pixel the first
// image, in slice order, whose mask is clear supplies the output; positions
// that are glare in every image stay black.
func Composite(images, masks []gocv.Mat) (gocv.Mat, error) {
	if len(images) == 0 {
		return gocv.NewMat(), ErrNoImages
	}
	if len(images) != len(masks) {
		return gocv.NewMat(), fmt.Errorf("%w: %d images, %d masks", ErrMaskCountMismatch, len(images), len(masks))
	}

	rows, cols := images[0].Rows(), images[0].Cols()
	for i := range images {
		if images[i].Rows() != rows || images[i].Cols() != cols {
			return gocv.NewMat(), fmt.Errorf("%w: image %d is %dx%d, want %dx%d",
				ErrExtentMismatch, i, images[i].Cols(), images[i].Rows(), cols, rows)
		}
		if masks[i].Rows() != rows || masks[i].Cols() != cols {
			return gocv.NewMat(), fmt.Errorf("%w: mask %d is %dx%d, want %dx%d",
				ErrExtentMismatch, i, masks[i].Cols(), masks[i].Rows(), cols, rows)
		}
	}

	if rows == 0 || cols == 0 {
		return gocv.NewMat(), nil
	}
	out := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, images[0].Type())

	// Lowest index wins, so paint from the back.
	keep := gocv.NewMat()
	defer keep.Close()
	for i := len(images) - 1; i >= 0; i-- {
		gocv.Threshold(masks[i], &keep, 0, GlareValue, gocv.ThresholdBinaryInv)
		if err := images[i].CopyToWithMask(&out, keep); err != nil {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("failed to copy clear pixels of image %d: %w", i, err)
		}
	}
	return out, nil
}
