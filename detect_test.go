package icat

import (
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

func TestResponseScan(t *testing.T) {
	got := make(responseTable)

	// A partial frame matches nothing and leaves the offset alone.
	buf := []byte("\x1b_Gi=1;O")
	off := got.scan(buf, 0)
	assert.Zero(t, off)
	assert.Empty(t, got)

	// Completing the frame resolves id 1.
	buf = append(buf, []byte("K\x1b\\")...)
	off = got.scan(buf, off)
	assert.Equal(t, len(buf), off)
	assert.Equal(t, responseTable{probeInline: true}, got)

	// An error answer resolves id 2 to false.
	buf = append(buf, []byte("\x1b_Gi=2;ENOTSUPPORTED:file transfer\x1b\\")...)
	off = got.scan(buf, off)
	assert.Equal(t, len(buf), off)
	assert.False(t, got[probeFile])
	assert.True(t, got.complete())
}

func TestResponseScanFirstMatchWins(t *testing.T) {
	got := make(responseTable)

	buf := []byte("\x1b_Gi=1;OK\x1b\\\x1b_Gi=1;EBADF\x1b\\")
	off := got.scan(buf, 0)
	assert.Equal(t, len(buf), off)
	assert.True(t, got[probeInline], "a later frame must not overwrite a resolved id")

	got = make(responseTable)
	buf = []byte("\x1b_Gi=2;ENOENT\x1b\\\x1b_Gi=2;OK\x1b\\")
	got.scan(buf, 0)
	assert.False(t, got[probeFile])
}

func TestResponseScanIgnoresSurroundingNoise(t *testing.T) {
	got := make(responseTable)

	// Frames can arrive interleaved with unrelated terminal chatter.
	buf := []byte("\x1b[0n\x1b_Gi=2;OK\x1b\\garbage\x1b_Gi=1;OK\x1b\\")
	got.scan(buf, 0)
	assert.True(t, got.complete())
	assert.True(t, got[probeInline])
	assert.True(t, got[probeFile])
}

func TestResponseTableResolveRemaining(t *testing.T) {
	got := responseTable{probeInline: true}
	assert.False(t, got.complete())

	// EOF resolves whatever is still open to false, never overwriting.
	got.resolveRemaining(false)
	assert.True(t, got.complete())
	assert.True(t, got[probeInline])
	assert.False(t, got[probeFile])
}

func TestDetectSupportDeadlineRestoresTerminal(t *testing.T) {
	ptm, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptm.Close()
	defer tty.Close()

	fd := int(tty.Fd())
	before, err := term.GetState(fd)
	require.NoError(t, err)
	flags, err := unix.FcntlInt(tty.Fd(), unix.F_GETFL, 0)
	require.NoError(t, err)

	// Nothing ever answers on the pty, so both probes expire.
	start := time.Now()
	graphics, files, err := detectSupport(tty, tty, 300*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err, "an unanswered terminal is not an error")
	assert.False(t, graphics)
	assert.False(t, files)
	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second, "the deadline must bound the wait")

	after, err := term.GetState(fd)
	require.NoError(t, err)
	assert.Equal(t, before, after, "terminal attributes must come back bit-identical")

	afterFlags, err := unix.FcntlInt(tty.Fd(), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.Equal(t, flags, afterFlags, "the blocking mode must be restored")
}

func TestDetectSupportReadsAcknowledgements(t *testing.T) {
	ptm, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptm.Close()
	defer tty.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Wait for the probes to show up, then answer both ids the way a
		// terminal with inline support but no file transfer would.
		buf := make([]byte, 4096)
		_, _ = ptm.Read(buf)
		_, _ = ptm.WriteString("\x1b_Gi=1;OK\x1b\\\x1b_Gi=2;EBADF:file transfer\x1b\\")
	}()

	start := time.Now()
	graphics, files, err := detectSupport(tty, tty, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, graphics)
	assert.False(t, files)
	assert.Less(t, time.Since(start), 5*time.Second,
		"answered probes must return before the deadline")
	<-done
}

func TestDetectSupportRequiresTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		t.Skip("stdin is a real terminal")
	}

	start := time.Now()
	graphics, files, err := DetectSupport(500 * time.Millisecond)
	require.Error(t, err, "raw mode on a non-terminal must fail")
	assert.False(t, graphics)
	assert.False(t, files)
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"a raw-mode failure must not consume the timeout")
}
