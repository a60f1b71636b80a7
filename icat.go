package icat

import (
	"errors"
	"io"
)

// Printer transmits images to the terminal one item at a time. Per-item
// open/decode failures are collected so a run can finish the rest of its
// items and report the failures together at the end; every other error is
// returned as-is and should abort the run.
type Printer struct {
	enc *Encoder

	// Scale downsizes the pixel buffer to the fitted display size before
	// transmission, so the bytes on the wire match what the terminal
	// shows. Off, the image is sent at native size and the terminal does
	// the scaling. Ignored for pre-encoded (SVG) frames.
	Scale bool

	errs []error
}

// NewPrinter returns a Printer writing graphics frames to w, normally the
// terminal's stdout.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{enc: NewEncoder(w), Scale: true}
}

// Errors returns the per-item failures collected so far, in the order they
// were encountered.
func (p *Printer) Errors() []error { return p.errs }

// Print transmits one image file. An *OpenError return has already been
// recorded in Errors; the caller is expected to move on to the next item.
func (p *Printer) Print(path string) error {
	err := p.print(path)
	var oe *OpenError
	if errors.As(err, &oe) {
		p.errs = append(p.errs, err)
	}
	return err
}

func (p *Printer) print(path string) error {
	geo, err := Geometry(false)
	if err != nil {
		return err
	}

	var frame *Frame
	if IsSVG(path) {
		data, err := ConvertSVG(path)
		if err != nil {
			return err
		}
		frame = &Frame{Mode: ModePNG, Data: data}
	} else {
		img, err := DecodeFile(path)
		if err != nil {
			return err
		}
		if p.Scale {
			b := img.Bounds()
			w, h := FitImage(b.Dx(), b.Dy(), int(geo.Width), int(geo.Height))
			if w < b.Dx() || h < b.Dy() {
				img = ResizeImage(img, uint(w), uint(h))
			}
		}
		frame = NewFrame(img)
	}

	return p.transmit(frame, geo)
}

// transmit places the frame on the character grid, emits any leading
// padding as plain bytes, streams the chunked payload, and finishes with a
// newline so the cursor always ends on a fresh line.
func (p *Printer) transmit(f *Frame, geo ScreenGeometry) error {
	cmd := (&Command{}).Set("a", "T")

	fit := Place(f.Width, f.Height, geo)
	if fit.Rows > 0 {
		cmd.SetInt("c", fit.Cols)
		cmd.SetInt("r", fit.Rows)
		cmd.SetInt("Y", fit.Y)
	} else {
		cmd.SetInt("X", fit.X)
		if err := p.enc.Pad(fit.Pad); err != nil {
			return err
		}
	}

	if err := p.enc.Transmit(cmd, f.Mode, f.Width, f.Height, f.Data); err != nil {
		return err
	}
	return p.enc.Newline()
}
