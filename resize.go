package icat

import (
	"image"

	"github.com/nfnt/resize"
)

// ResizeImage scales an image to the given dimensions. Large downscales use
// bilinear interpolation; small ones take the cheaper nearest-neighbor
// path, which is indistinguishable at terminal cell resolution.
func ResizeImage(img image.Image, width, height uint) image.Image {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	if uint(bounds.Dx()) == width && uint(bounds.Dy()) == height {
		return img
	}

	interp := resize.NearestNeighbor
	if bounds.Dx()*bounds.Dy() > int(width*height)*4 {
		interp = resize.Bilinear
	}
	return resize.Resize(width, height, img, interp)
}
