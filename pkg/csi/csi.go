/*
Package csi provides CSI (Control Sequence Introducer) query functions for
terminal geometry.
*/
package csi

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// QueryTimeout is the default timeout for CSI queries
const QueryTimeout = 100 * time.Millisecond

// QueryTextAreaSizeInPixels queries text area size in pixels using CSI 14t
// returns: width and height in pixels, or 0,0 if query fails
func QueryTextAreaSizeInPixels() (width, height int, ok bool) {
	query := wrapTmuxPassthrough("\x1b[14t")

	// Open controlling terminal
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return 0, 0, false
	}
	defer tty.Close()

	oldState, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		return 0, 0, false
	}
	defer term.Restore(int(tty.Fd()), oldState)

	if _, err := tty.WriteString(query); err != nil {
		return 0, 0, false
	}

	responseChan := make(chan [2]int, 1)
	go func() {
		buf := make([]byte, 64)
		n, err := tty.Read(buf)
		if err == nil && n > 0 {
			// Parse response: CSI 4 ; height ; width t
			response := string(buf[:n])
			if w, h, ok := ParseTextAreaSize(response); ok {
				responseChan <- [2]int{w, h}
				return
			}
		}
		responseChan <- [2]int{0, 0}
	}()

	select {
	case result := <-responseChan:
		return result[0], result[1], result[0] > 0 && result[1] > 0
	case <-time.After(QueryTimeout):
		return 0, 0, false
	}
}

// ParseTextAreaSize parses a CSI 14t response of the form
// "\x1b[4;height;widtht" into pixel dimensions.
func ParseTextAreaSize(response string) (width, height int, ok bool) {
	if !strings.Contains(response, "[4;") {
		return 0, 0, false
	}
	parts := strings.Split(response, ";")
	if len(parts) < 3 {
		return 0, 0, false
	}
	fmt.Sscanf(parts[1], "%d", &height)
	fmt.Sscanf(parts[2], "%dt", &width)
	return width, height, width > 0 && height > 0
}

// inTmux checks if running inside tmux
func inTmux() bool {
	return os.Getenv("TMUX") != "" || os.Getenv("TERM_PROGRAM") == "tmux"
}

// wrapTmuxPassthrough wraps an escape sequence for tmux passthrough if needed
func wrapTmuxPassthrough(output string) string {
	if inTmux() {
		if !strings.HasPrefix(output, "\x1b") {
			return output
		}
		// tmux passthrough format: \ePtmux;{escaped_sequence}\e\\
		// All \e (ESC) characters in the sequence must be doubled
		return "\x1bPtmux;" + strings.ReplaceAll(output, "\x1b", "\x1b\x1b") + "\x1b\\"
	}
	return output
}
