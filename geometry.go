package icat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/blacktop/go-icat/pkg/csi"
)

// ErrNoSizeSupport is returned when the terminal cannot report its size in
// pixels. All placement math depends on the per-cell pixel size, so callers
// must treat this as fatal.
var ErrNoSizeSupport = errors.New("terminal does not support reporting screen sizes in pixels")

// ScreenGeometry is a snapshot of the terminal window size, in character
// cells and in pixels.
type ScreenGeometry struct {
	Rows   uint
	Cols   uint
	Width  uint // pixels
	Height uint // pixels
}

// CellSize returns the pixel dimensions of one character cell. A geometry
// with no cells, or with fewer pixels than cells along an axis, yields a
// zero cell dimension; Geometry never serves such a snapshot, but callers
// holding a hand-built ScreenGeometry must be prepared for it.
func (g ScreenGeometry) CellSize() (width, height uint) {
	if g.Cols == 0 || g.Rows == 0 {
		return 0, 0
	}
	return g.Width / g.Cols, g.Height / g.Rows
}

var (
	geomMu    sync.Mutex
	geomCache *ScreenGeometry
)

// Geometry returns the terminal geometry, querying the controlling terminal
// on first use and serving a cached snapshot afterwards. Passing refresh
// forces a re-query; the resize watcher does this on SIGWINCH.
func Geometry(refresh bool) (ScreenGeometry, error) {
	geomMu.Lock()
	defer geomMu.Unlock()

	if geomCache == nil || refresh {
		g, err := queryGeometry()
		if err != nil {
			return ScreenGeometry{}, err
		}
		geomCache = &g
	}

	g := *geomCache
	if g.Width == 0 || g.Height == 0 || g.Cols == 0 || g.Rows == 0 {
		return g, ErrNoSizeSupport
	}
	return g, nil
}

func queryGeometry() (ScreenGeometry, error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return ScreenGeometry{}, fmt.Errorf("query window size: %w", err)
	}

	g := ScreenGeometry{
		Rows:   uint(ws.Row),
		Cols:   uint(ws.Col),
		Width:  uint(ws.Xpixel),
		Height: uint(ws.Ypixel),
	}

	// Some terminals leave the pixel fields of the winsize struct at zero;
	// fall back to asking the terminal directly with CSI 14 t.
	if g.Width == 0 || g.Height == 0 {
		if w, h, ok := csi.QueryTextAreaSizeInPixels(); ok {
			g.Width, g.Height = uint(w), uint(h)
		}
	}

	return g, nil
}

// WatchResize refreshes the cached geometry whenever the terminal is
// resized. The watcher goroutine exits when ctx is done. The handler does
// nothing beyond triggering the refresh path; a stale read between the
// signal and the refresh is harmless.
func WatchResize(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGWINCH)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				// Any error here surfaces on the next Geometry call.
				_, _ = Geometry(true)
			}
		}
	}()
}
