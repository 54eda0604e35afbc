//go:build !headless && !(alsa && linux && cgo)

// audio_backend_oto.go - OTO v3 audio output implementation

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
	"bytes"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

// oto permits a single context per process, so every OtoOutput shares it.
var (
	otoOnce    sync.Once
	otoCtx     *oto.Context
	otoOptions OutputOptions
	otoErr     error
)

const otoPollInterval = time.Millisecond

type OtoOutput struct {
	ctx        *oto.Context
	sampleRate int
	channels   int
	mutex      sync.Mutex // Serializes writes; one tone at a time per output
	closed     bool
}

func otoContext(opts OutputOptions) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   opts.SampleRate,
			ChannelCount: opts.ChannelCount,
			Format:       oto.FormatFloat32LE,
			BufferSize:   opts.BufferSize,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		otoOptions = opts
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoOptions.SampleRate != opts.SampleRate || otoOptions.ChannelCount != opts.ChannelCount {
		return nil, fmt.Errorf("audio context already open at %dHz/%dch, cannot reopen at %dHz/%dch",
			otoOptions.SampleRate, otoOptions.ChannelCount, opts.SampleRate, opts.ChannelCount)
	}
	return otoCtx, nil
}

// OpenOutput opens the default playback device through oto.
func OpenOutput(opts OutputOptions) (Output, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOutputDevice, err)
	}
	ctx, err := otoContext(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOutputDevice, err)
	}
	return &OtoOutput{
		ctx:        ctx,
		sampleRate: opts.SampleRate,
		channels:   opts.ChannelCount,
	}, nil
}

func (o *OtoOutput) SampleRate() int   { return o.sampleRate }
func (o *OtoOutput) ChannelCount() int { return o.channels }

// Write queues samples on a fresh player and waits for it to drain.
func (o *OtoOutput) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.closed {
		return ErrOutputClosed
	}
	if err := o.ctx.Err(); err != nil {
		return fmt.Errorf("audio context: %w", err)
	}

	// FormatFloat32LE matches the in-memory layout on little-endian hosts
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*4)
	player := o.ctx.NewPlayer(bytes.NewReader(raw))
	defer player.Close()

	player.Play()
	for player.IsPlaying() {
		time.Sleep(otoPollInterval)
	}
	if err := player.Err(); err != nil {
		return fmt.Errorf("audio player: %w", err)
	}
	return nil
}

// Close waits for any click in progress. The shared oto context stays open
// for the life of the process.
func (o *OtoOutput) Close() error {
	o.mutex.Lock()
	o.closed = true
	o.mutex.Unlock()
	return nil
}
