package icat

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ChunkSize is the number of base64 bytes carried by one graphics frame.
// The kitty protocol caps escape-sequence payloads at 4KB.
const ChunkSize = 4096

// PixelMode identifies the wire format of a transmitted frame.
type PixelMode int

const (
	// ModeRGB is 3 bytes per pixel, row-major.
	ModeRGB PixelMode = iota
	// ModeRGBA is 4 bytes per pixel, row-major.
	ModeRGBA
	// ModePNG is a complete pre-encoded PNG stream.
	ModePNG
)

// formatCode maps a pixel mode to the protocol's f= key. An unknown mode is
// a caller contract violation, not a runtime condition.
func (m PixelMode) formatCode() string {
	switch m {
	case ModeRGB:
		return "24"
	case ModeRGBA:
		return "32"
	case ModePNG:
		return "100"
	}
	panic(fmt.Sprintf("icat: invalid pixel mode %d", int(m)))
}

// Command is the ordered control-key set of one graphics escape frame.
// Keys are single characters; setting a key that is already present
// replaces its value, so no frame ever carries a duplicate.
type Command struct {
	keys []string
	vals []string
}

// Set adds or replaces a control key.
func (c *Command) Set(key, value string) *Command {
	for i, k := range c.keys {
		if k == key {
			c.vals[i] = value
			return c
		}
	}
	c.keys = append(c.keys, key)
	c.vals = append(c.vals, value)
	return c
}

// SetInt adds or replaces a control key with an integer value.
func (c *Command) SetInt(key string, value int) *Command {
	return c.Set(key, strconv.Itoa(value))
}

// String serializes the keys in insertion order as "k=v,k=v".
func (c *Command) String() string {
	var sb strings.Builder
	for i, k := range c.keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(c.vals[i])
	}
	return sb.String()
}

// Encoder frames graphics commands onto a terminal output stream.
type Encoder struct {
	w *bufio.Writer

	// Passthrough wraps every frame for tmux/screen so it reaches the
	// outer terminal. Set from the environment by NewEncoder.
	Passthrough bool
}

// NewEncoder returns an Encoder writing to w. When running inside tmux the
// pane's allow-passthrough option is enabled and frames are wrapped for
// passthrough automatically.
func NewEncoder(w io.Writer) *Encoder {
	pt := inMultiplexer()
	if pt {
		enableTmuxPassthrough()
	}
	return &Encoder{w: bufio.NewWriter(w), Passthrough: pt}
}

// WriteFrame emits a single escape frame: ESC _ G <ctrl> ; <payload> ESC \
// and flushes the stream.
func (e *Encoder) WriteFrame(cmd *Command, payload []byte) error {
	frame := "\x1b_G" + cmd.String() + ";" + string(payload) + "\x1b\\"
	if e.Passthrough {
		frame = wrapPassthrough(frame)
	}
	if _, err := e.w.WriteString(frame); err != nil {
		return fmt.Errorf("write graphics frame: %w", err)
	}
	return e.w.Flush()
}

// Pad writes n blank cells directly to the stream, outside any frame.
func (e *Encoder) Pad(n int) error {
	if n <= 0 {
		return nil
	}
	if _, err := e.w.WriteString(strings.Repeat(" ", n)); err != nil {
		return fmt.Errorf("write padding: %w", err)
	}
	return nil
}

// Newline moves the cursor to a fresh line and flushes.
func (e *Encoder) Newline() error {
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return e.w.Flush()
}

// Transmit frames payload as one or more chunks under the given command.
// Raw pixel modes are zlib-compressed and declare their stride and row
// count with s= and v=; ModePNG payloads pass through uncompressed and
// declare only their total size with S=.
//
// The descriptive keys ride on the first chunk only. Every following chunk
// carries nothing but the continuation flag: the terminal reads the
// metadata once and the shorter frames keep the wire format compatible
// with kitty's reference implementation.
func (e *Encoder) Transmit(cmd *Command, mode PixelMode, width, height int, payload []byte) error {
	cmd.Set("f", mode.formatCode())
	if mode == ModePNG {
		cmd.SetInt("S", len(payload))
	} else {
		cmd.SetInt("s", width)
		cmd.SetInt("v", height)
		compressed, err := deflate(payload)
		if err != nil {
			return fmt.Errorf("compress payload: %w", err)
		}
		payload = compressed
		cmd.Set("o", "z")
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	for first := true; ; first = false {
		chunk := encoded
		if len(chunk) > ChunkSize {
			chunk = encoded[:ChunkSize]
		}
		encoded = encoded[len(chunk):]

		more := 0
		if len(encoded) > 0 {
			more = 1
		}

		frame := cmd
		if !first {
			frame = &Command{}
		}
		frame.SetInt("m", more)

		if err := e.WriteFrame(frame, []byte(chunk)); err != nil {
			return err
		}
		if len(encoded) == 0 {
			return nil
		}
	}
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inMultiplexer reports whether stdout goes through tmux or screen.
func inMultiplexer() bool {
	return os.Getenv("TMUX") != "" ||
		os.Getenv("TERM_PROGRAM") == "tmux" ||
		os.Getenv("TERM_PROGRAM") == "screen"
}

var tmuxPassthroughOnce sync.Once

// enableTmuxPassthrough switches the current tmux pane to allow-passthrough
// so graphics sequences reach the outer terminal.
func enableTmuxPassthrough() {
	tmuxPassthroughOnce.Do(func() {
		// -p sets the option for the current pane only.
		cmd := exec.Command("tmux", "set", "-p", "allow-passthrough", "on")
		cmd.Stdin = nil
		cmd.Stdout = nil
		cmd.Stderr = nil
		_ = cmd.Run()
	})
}

// wrapPassthrough wraps an escape sequence in a tmux passthrough envelope.
// Every ESC inside the sequence must be doubled.
func wrapPassthrough(seq string) string {
	return "\x1bPtmux;" + strings.ReplaceAll(seq, "\x1b", "\x1b\x1b") + "\x1b\\"
}
