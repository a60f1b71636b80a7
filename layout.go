package icat

import "math"

// FitImage shrinks width x height to fit inside the given pixel bounds
// while preserving aspect ratio. A zero bound means unconstrained. Images
// already inside the bounds come back unchanged; nothing is ever upscaled.
//
// The correction runs height, then width, then height again: clamping the
// width rescales the height, which can push it back over a bound that the
// first pass already corrected.
func FitImage(width, height, boundsWidth, boundsHeight int) (int, int) {
	if boundsHeight > 0 && height > boundsHeight {
		corr := float64(boundsHeight) / float64(height)
		width, height = int(math.Floor(corr*float64(width))), boundsHeight
	}
	if boundsWidth > 0 && width > boundsWidth {
		corr := float64(boundsWidth) / float64(width)
		width, height = boundsWidth, int(math.Floor(corr*float64(height)))
	}
	if boundsHeight > 0 && height > boundsHeight {
		corr := float64(boundsHeight) / float64(height)
		width, height = int(math.Floor(corr*float64(width))), boundsHeight
	}
	return width, height
}

// FitResult describes where and how large an image lands on the character
// grid. Exactly one of the two placement shapes is populated: an image too
// wide for the terminal reserves Cols x Rows cells with a vertical pixel
// offset, while an image that fits at native size gets a horizontal pixel
// offset and a leading pad of blank cells that centers it.
type FitResult struct {
	Width  int // display width in pixels
	Height int // display height in pixels

	Cols int // columns to reserve; zero when the image fits unscaled
	Rows int // rows to reserve; zero when the image fits unscaled
	Y    int // vertical pixel offset inside the reserved cell block
	X    int // horizontal pixel offset inside the final cell
	Pad  int // leading blank cells emitted before the image
}

// Place computes the placement of a width x height pixel image inside the
// given terminal geometry.
func Place(width, height int, geo ScreenGeometry) FitResult {
	cellW, cellH := geo.CellSize()
	if cellW == 0 || cellH == 0 {
		// Degenerate geometry: without a cell size there is no offset or
		// centering math to do. Fit to whatever pixel bounds exist and
		// reserve the whole grid.
		w, h := FitImage(width, height, int(geo.Width), int(geo.Height))
		return FitResult{
			Width:  w,
			Height: h,
			Cols:   int(geo.Cols),
			Rows:   int(geo.Rows),
		}
	}

	cellsNeeded := ceilDiv(width, int(cellW))
	if cellsNeeded > int(geo.Cols) {
		// Too wide to show at native size: scale to the full terminal
		// bounds and tell the terminal to reserve the cells it needs.
		w, h := FitImage(width, height, int(geo.Width), int(geo.Height))
		return FitResult{
			Width:  w,
			Height: h,
			Cols:   int(geo.Cols),
			Rows:   ceilDiv(h, int(cellH)),
			Y:      h % int(cellH),
		}
	}

	return FitResult{
		Width:  width,
		Height: height,
		X:      width % int(cellW),
		Pad:    (int(geo.Cols) - cellsNeeded) / 2,
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
