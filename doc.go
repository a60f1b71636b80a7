/*
Package icat transmits raster images into terminal emulators that implement
the kitty graphics protocol.

The package covers the whole transport layer: it probes the terminal for its
size in cells and pixels, negotiates protocol support over raw non-blocking
terminal I/O, computes where an image lands on the character grid, and frames
the pixel data as chunked, base64-encoded (and for raw pixel modes,
zlib-compressed) graphics escape sequences.

Basic Usage:

	ok, _, err := icat.DetectSupport(icat.DetectTimeout)
	if err != nil {
	    log.Fatal(err)
	}
	if !ok {
	    log.Fatal("terminal has no graphics support")
	}

	p := icat.NewPrinter(os.Stdout)
	if err := p.Print("image.png"); err != nil {
	    log.Fatal(err)
	}

Capability negotiation sends two probe frames, one carrying an inline
payload and one referencing a temporary file, and waits up to the given
timeout for the terminal to acknowledge either. The terminal's attributes
are saved before the exchange and restored on every exit path, so a failed
or timed-out negotiation never leaves the session in raw mode.

Directories can be expanded with Scan, which walks them recursively and
returns every file with a recognized raster image type. SVG files are
rasterized through the external rsvg-convert tool and transmitted as
pre-encoded PNG streams.

Graphics frames are automatically wrapped for tmux passthrough when running
inside tmux or screen, so images reach the outer terminal unchanged.
*/
package icat
