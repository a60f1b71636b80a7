package icat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedGeometry installs a fake cached geometry and returns a restore func.
func seedGeometry(g ScreenGeometry) func() {
	geomMu.Lock()
	prev := geomCache
	geomCache = &g
	geomMu.Unlock()
	return func() {
		geomMu.Lock()
		geomCache = prev
		geomMu.Unlock()
	}
}

func TestCellSize(t *testing.T) {
	g := ScreenGeometry{Rows: 50, Cols: 100, Width: 1000, Height: 800}
	w, h := g.CellSize()
	assert.Equal(t, uint(10), w)
	assert.Equal(t, uint(16), h)

	// A geometry with no cells yields a zero cell size instead of panicking.
	w, h = ScreenGeometry{Width: 1000, Height: 800}.CellSize()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestGeometryCached(t *testing.T) {
	want := ScreenGeometry{Rows: 24, Cols: 80, Width: 640, Height: 384}
	restore := seedGeometry(want)
	defer restore()

	got, err := Geometry(false)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGeometryNoPixelSize(t *testing.T) {
	restore := seedGeometry(ScreenGeometry{Rows: 24, Cols: 80})
	defer restore()

	_, err := Geometry(false)
	assert.ErrorIs(t, err, ErrNoSizeSupport)
}
