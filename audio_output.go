// audio_output.go - Output stream abstraction consumed by the tone renderer

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package metronome

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

const (
	SAMPLE_RATE       = 44100
	CHANNEL_COUNT     = 2
	OUTPUT_BUFFER     = 50 * time.Millisecond
	MIN_SAMPLE_RATE   = 8000
	MAX_SAMPLE_RATE   = 192000
	MAX_CHANNEL_COUNT = 8
)

// Output is an opened audio stream. Samples are interleaved float32 frames in
// the stream's native channel layout. Write blocks until the device has
// consumed the whole buffer. Close releases the device; writes after Close
// fail with ErrOutputClosed.
type Output interface {
	io.Closer
	SampleRate() int
	ChannelCount() int
	Write(samples []float32) error
}

// OutputOpener acquires an Output. The arbiter opens one and shares it
// between its metronomes, reopening only after a write to it has failed.
type OutputOpener func() (Output, error)

// OutputOptions is the stream configuration requested from a backend.
type OutputOptions struct {
	SampleRate   int
	ChannelCount int
	BufferSize   time.Duration
}

func DefaultOutputOptions() OutputOptions {
	return OutputOptions{
		SampleRate:   SAMPLE_RATE,
		ChannelCount: CHANNEL_COUNT,
		BufferSize:   OUTPUT_BUFFER,
	}
}

func (o OutputOptions) Validate() error {
	if o.SampleRate < MIN_SAMPLE_RATE || o.SampleRate > MAX_SAMPLE_RATE {
		return fmt.Errorf("sample rate %d outside %d-%d", o.SampleRate, MIN_SAMPLE_RATE, MAX_SAMPLE_RATE)
	}
	if o.ChannelCount < 1 || o.ChannelCount > MAX_CHANNEL_COUNT {
		return fmt.Errorf("channel count %d outside 1-%d", o.ChannelCount, MAX_CHANNEL_COUNT)
	}
	if o.BufferSize < 0 {
		return fmt.Errorf("negative buffer size %s", o.BufferSize)
	}
	return nil
}

// OpenDefaultOutput opens the platform output with the default options.
func OpenDefaultOutput() (Output, error) {
	return OpenOutput(DefaultOutputOptions())
}

// SilentOutput discards samples but blocks for as long as the device would
// take to play them, so pacing behaves as with real hardware.
type SilentOutput struct {
	sampleRate int
	channels   int
	sleep      func(time.Duration)
	closed     atomic.Bool
	frames     atomic.Int64
}

func NewSilentOutput(sampleRate, channels int) *SilentOutput {
	return &SilentOutput{
		sampleRate: sampleRate,
		channels:   channels,
		sleep:      time.Sleep,
	}
}

func (s *SilentOutput) SampleRate() int   { return s.sampleRate }
func (s *SilentOutput) ChannelCount() int { return s.channels }

func (s *SilentOutput) Write(samples []float32) error {
	if s.closed.Load() {
		return ErrOutputClosed
	}
	frames := len(samples) / s.channels
	s.frames.Add(int64(frames))
	if frames > 0 {
		s.sleep(time.Duration(frames) * time.Second / time.Duration(s.sampleRate))
	}
	return nil
}

// FramesWritten reports the total number of frames accepted so far.
func (s *SilentOutput) FramesWritten() int64 {
	return s.frames.Load()
}

// Close makes subsequent writes fail with ErrOutputClosed, the way a
// disconnected device would.
func (s *SilentOutput) Close() error {
	s.closed.Store(true)
	return nil
}
