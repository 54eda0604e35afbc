//go:build unix

package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

const rawPollInterval = 5 * time.Millisecond

// RawInput puts a terminal in raw, non-blocking mode so single key presses
// arrive without echo or line buffering. Close restores the terminal.
type RawInput struct {
	fd          int
	oldState    *term.State
	nonblockSet bool
}

func OpenRawInput(f *os.File) (*RawInput, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal", f.Name())
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("set raw mode: %w", err)
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = term.Restore(fd, oldState)
		return nil, fmt.Errorf("set nonblocking input: %w", err)
	}
	return &RawInput{fd: fd, oldState: oldState, nonblockSet: true}, nil
}

// ReadKey polls for the next byte so a cancelled ctx is noticed promptly. A
// closed input (hangup, or end of file) returns io.EOF.
func (r *RawInput) ReadKey(ctx context.Context) (byte, error) {
	buf := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := syscall.Read(r.fd, buf)
		if n > 0 {
			return buf[0], nil
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(rawPollInterval)
			continue
		}
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
}

func (r *RawInput) Close() error {
	if r.nonblockSet {
		_ = syscall.SetNonblock(r.fd, false)
		r.nonblockSet = false
	}
	if r.oldState != nil {
		err := term.Restore(r.fd, r.oldState)
		r.oldState = nil
		return err
	}
	return nil
}
