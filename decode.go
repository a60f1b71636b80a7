package icat

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Frame is a decoded image ready for transmission: raw pixels in row-major
// order for ModeRGB/ModeRGBA, or a complete PNG stream for ModePNG.
type Frame struct {
	Mode   PixelMode
	Width  int
	Height int
	Data   []byte
}

// OpenError is a per-item open/decode failure. The driver collects these
// and keeps going; everything else aborts the run.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open: %s with error: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// DecodeFile decodes an image file into memory. Failures are reported as
// *OpenError carrying the path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return img, nil
}

// NewFrame extracts the raw pixel data from a decoded image. Images decoded
// from formats without an alpha channel travel as 3-byte RGB; everything
// else is converted to 4-byte RGBA. The protocol's 32-bit format carries
// straight (unassociated) alpha, so translucent images must never pass
// through a premultiplied representation.
func NewFrame(img image.Image) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		data := make([]byte, 0, w*h*3)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				data = append(data, uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
		return &Frame{Mode: ModeRGB, Width: w, Height: h, Data: data}
	}

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == w*4 {
		return &Frame{Mode: ModeRGBA, Width: w, Height: h, Data: nrgba.Pix}
	}
	// Premultiplied and straight alpha agree only at full opacity.
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 && rgba.Opaque() {
		return &Frame{Mode: ModeRGBA, Width: w, Height: h, Data: rgba.Pix}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return &Frame{Mode: ModeRGBA, Width: w, Height: h, Data: dst.Pix}
}
