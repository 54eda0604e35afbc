package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome"
)

const (
	BPM_STEP = 5.0
	BPM_MIN  = 20.0
	BPM_MAX  = 600.0
)

// Keys
const (
	KEY_TAP    = ' '
	KEY_UP     = '+'
	KEY_UP_ALT = '=' // '+' without shift on most layouts
	KEY_DOWN   = '-'
	KEY_QUIT   = 'q'
	KEY_CTRL_C = 0x03
)

// KeySource yields one key press at a time. ReadKey returns io.EOF when the
// input ends and ctx.Err() when ctx is done first.
type KeySource interface {
	ReadKey(ctx context.Context) (byte, error)
}

// Controller maps key presses to tempo changes on a metronome.
type Controller struct {
	m      *metronome.Metronome
	tap    TapTempo
	out    io.Writer
	logger *zap.Logger
	now    func() time.Time
}

func NewController(m *metronome.Metronome, out io.Writer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Controller{m: m, out: out, logger: logger, now: time.Now}
}

// Run handles keys until quit, end of input, or ctx is done.
func (c *Controller) Run(ctx context.Context, keys KeySource) error {
	c.status()
	for {
		b, err := keys.ReadKey(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		quit, err := c.HandleKey(b)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// HandleKey applies one key press. Unknown keys are ignored.
func (c *Controller) HandleKey(b byte) (quit bool, err error) {
	switch b {
	case KEY_QUIT, 'Q', KEY_CTRL_C:
		fmt.Fprint(c.out, "\r\n")
		return true, nil
	case KEY_TAP:
		bpm, ok := c.tap.Tap(c.now())
		if !ok {
			return false, nil
		}
		return false, c.setTempo(math.Round(bpm))
	case KEY_UP, KEY_UP_ALT:
		c.tap.Reset()
		return false, c.setTempo(c.m.BPM() + BPM_STEP)
	case KEY_DOWN:
		c.tap.Reset()
		return false, c.setTempo(c.m.BPM() - BPM_STEP)
	}
	return false, nil
}

// setTempo restarts a playing metronome so the change is heard immediately.
func (c *Controller) setTempo(bpm float64) error {
	bpm = math.Max(BPM_MIN, math.Min(BPM_MAX, bpm))
	if bpm == c.m.BPM() {
		return nil
	}
	if err := c.m.SetBPM(bpm); err != nil {
		return err
	}
	if c.m.IsPlaying() {
		if err := c.m.Start(); err != nil {
			return err
		}
	}
	c.logger.Debug("tempo changed", zap.Float64("bpm", bpm))
	c.status()
	return nil
}

func (c *Controller) status() {
	// Raw mode: return to column 0 and clear the line ourselves
	fmt.Fprintf(c.out, "\r\x1b[K%.0f BPM  [space] tap  [+/-] %g  [q] quit", c.m.BPM(), BPM_STEP)
}

// ReaderKeys adapts a plain reader, such as a pipe, to KeySource. It does not
// observe ctx while a read is blocked.
type ReaderKeys struct {
	R io.Reader
}

func (k ReaderKeys) ReadKey(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var buf [1]byte
	for {
		n, err := k.R.Read(buf[:])
		if n == 1 {
			return buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
