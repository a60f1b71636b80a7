package icat

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// DetectTimeout is how long DetectSupport waits for the terminal to answer
// the graphics probes before giving up.
const DetectTimeout = 10 * time.Second

// pollSlice bounds each wait for input readability so the deadline is
// checked between reads.
const pollSlice = 100 * time.Millisecond

// Probe identifiers carried in the i= key of the two capability probes.
const (
	probeInline = 1 // inline-payload transfer
	probeFile   = 2 // file-reference transfer
)

// responseRe matches one terminal response frame: ESC _ G i=<id>;<status> ESC \
var responseRe = regexp.MustCompile(`\x1b_Gi=([12]);(.+?)\x1b\\`)

// responseTable records the first answer seen for each probe id. An id
// missing after the deadline reads as false.
type responseTable map[int]bool

func (t responseTable) complete() bool {
	_, a := t[probeInline]
	_, b := t[probeFile]
	return a && b
}

// resolveRemaining fills in every unresolved probe id, used when the input
// stream hits end-of-file.
func (t responseTable) resolveRemaining(v bool) {
	for _, id := range []int{probeInline, probeFile} {
		if _, ok := t[id]; !ok {
			t[id] = v
		}
	}
}

// scan matches complete response frames in buf starting at off, recording
// the first outcome per id, and returns the new scan offset so already
// matched regions are never rescanned. Later frames for a resolved id are
// ignored.
func (t responseTable) scan(buf []byte, off int) int {
	for {
		m := responseRe.FindSubmatchIndex(buf[off:])
		if m == nil {
			return off
		}
		id := int(buf[off+m[2]] - '0')
		if _, ok := t[id]; !ok {
			t[id] = string(buf[off+m[4]:off+m[5]]) == "OK"
		}
		off += m[1]
	}
}

// DetectSupport negotiates graphics support with the terminal. It sends an
// inline-payload probe and a file-reference probe, then polls stdin for the
// terminal's acknowledgements until both are answered, the stream hits
// end-of-file, or timeout elapses. Unanswered probes read as unsupported;
// ordinary non-support is never an error. The terminal's attributes and the
// input stream's blocking mode are restored on every exit path, and err
// reports failures of that restoration or of the probe writes themselves.
func DetectSupport(timeout time.Duration) (graphics, files bool, err error) {
	return detectSupport(os.Stdin, os.Stdout, timeout)
}

// detectSupport runs the negotiation against explicit terminal endpoints.
func detectSupport(in, out *os.File, timeout time.Duration) (graphics, files bool, err error) {
	fd := int(in.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return false, false, fmt.Errorf("enter raw mode: %w", err)
	}
	oldFlags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err == nil {
		_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, oldFlags|unix.O_NONBLOCK)
	}
	if err != nil {
		term.Restore(fd, oldState)
		return false, false, fmt.Errorf("set non-blocking input: %w", err)
	}

	defer func() {
		// The probe payloads can leave a stray glyph on screen; wipe
		// everything below the cursor before handing the terminal back.
		out.WriteString("\x1b[J")
		if _, ferr := unix.FcntlInt(uintptr(fd), unix.F_SETFL, oldFlags); ferr != nil && err == nil {
			err = fmt.Errorf("restore input flags: %w", ferr)
		}
		if rerr := term.Restore(fd, oldState); rerr != nil && err == nil {
			err = fmt.Errorf("restore terminal attributes: %w", rerr)
		}
	}()

	// The file-reference probe points the terminal at a real file; it must
	// outlive the polling loop.
	tmp, err := os.CreateTemp("", "icat-probe-")
	if err != nil {
		return false, false, fmt.Errorf("create probe file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := sendProbes(NewEncoder(out), tmp); err != nil {
		return false, false, err
	}

	got := pollResponses(fd, timeout)
	return got[probeInline], got[probeFile], nil
}

// sendProbes emits the two capability probes: a query carrying a tiny
// inline payload (id 1) and a query referencing tmp by path (id 2).
func sendProbes(enc *Encoder, tmp *os.File) error {
	payload := []byte("abcd")
	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("write probe file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("flush probe file: %w", err)
	}

	inline := (&Command{}).Set("a", "q").SetInt("s", 1).SetInt("v", 1).SetInt("i", probeInline)
	if err := enc.WriteFrame(inline, []byte(base64.StdEncoding.EncodeToString(payload))); err != nil {
		return err
	}

	file := (&Command{}).Set("a", "q").SetInt("s", 1).SetInt("v", 1).SetInt("i", probeFile).Set("t", "f")
	return enc.WriteFrame(file, []byte(base64.StdEncoding.EncodeToString([]byte(tmp.Name()))))
}

// pollResponses runs the single-threaded polling loop: wait for stdin
// readability in bounded slices, drain whatever arrived, and rescan the
// accumulation buffer for response frames, until the table is complete,
// the stream ends, or the deadline passes.
func pollResponses(fd int, timeout time.Duration) responseTable {
	got := make(responseTable)
	deadline := time.Now().Add(timeout)

	var acc []byte
	off := 0
	read := make([]byte, 512)

	for !got.complete() {
		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}
		slice := pollSlice
		if remain < slice {
			slice = remain
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(slice.Milliseconds()))
		if err == unix.EINTR {
			continue
		}
		if err != nil || n == 0 {
			if err != nil {
				break
			}
			continue
		}

		eof := false
		for {
			nr, rerr := unix.Read(fd, read)
			if nr > 0 {
				acc = append(acc, read[:nr]...)
				continue
			}
			if rerr == unix.EINTR {
				continue
			}
			if rerr != unix.EAGAIN {
				// End-of-file, or a dead stream (a hung-up pty reads as
				// EIO): nothing more will ever arrive.
				eof = true
			}
			break
		}

		off = got.scan(acc, off)
		if eof {
			got.resolveRemaining(false)
		}
	}

	return got
}
