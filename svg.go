package icat

import (
	"errors"
	"fmt"
	"os/exec"
)

// rasterizer is the external tool used to turn SVG files into PNG streams.
const rasterizer = "rsvg-convert"

// ErrRasterizerMissing means the external SVG rasterizer is not installed.
// This is an environment failure, not a per-item one: the run aborts.
var ErrRasterizerMissing = errors.New("could not find the program rsvg-convert, needed to display svg files")

// HaveRasterizer reports whether the SVG rasterizer is on PATH.
func HaveRasterizer() bool {
	_, err := exec.LookPath(rasterizer)
	return err == nil
}

// ConvertSVG rasterizes an SVG file into a PNG stream by invoking
// rsvg-convert. A missing binary is fatal; a conversion failure is a
// per-item *OpenError.
func ConvertSVG(path string) ([]byte, error) {
	bin, err := exec.LookPath(rasterizer)
	if err != nil {
		return nil, ErrRasterizerMissing
	}
	out, err := exec.Command(bin, "-f", "png", path).Output()
	if err != nil {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("rsvg-convert could not process the image: %w", err)}
	}
	return out, nil
}
