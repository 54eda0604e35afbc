// audio_tone.go - Fixed-duration tone synthesis and blocking playback

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
	"math"
	"time"
)

const (
	BEEP_FREQUENCY = 440.0
	BEEP_DURATION  = 200 * time.Millisecond
)

// Tone describes a single click: pitch, length, timbre and level.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Wave      WaveType
	Volume    float64
}

// frameCount truncates the tone duration to whole milliseconds before
// converting to frames.
func frameCount(d time.Duration, sampleRate int) int {
	ms := int64(d / time.Millisecond)
	if ms <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(ms * int64(sampleRate) / 1000)
}

// SynthesizeTone renders t into dst (grown if needed) as interleaved frames
// with the mono amplitude copied to every channel, and returns the filled
// slice.
func SynthesizeTone(dst []float32, t Tone, sampleRate, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frames := frameCount(t.Duration, sampleRate)
	n := frames * channels
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]

	phaseInc := TWO_PI * t.Frequency / float64(sampleRate)
	for i := 0; i < frames; i++ {
		phase := math.Mod(phaseInc*float64(i), TWO_PI)
		amp := SampleWave(t.Wave, phase) * t.Volume
		amp = math.Max(math.Min(amp, MAX_SAMPLE), MIN_SAMPLE)

		base := i * channels
		for c := 0; c < channels; c++ {
			dst[base+c] = float32(amp)
		}
	}
	return dst
}

// ToneRenderer synthesizes tones for one Output, reusing its sample buffer
// between clicks. It is not safe for concurrent use; each tick loop owns one.
type ToneRenderer struct {
	out       Output
	sampleBuf []float32
}

func NewToneRenderer(out Output) *ToneRenderer {
	return &ToneRenderer{
		out: out,
		// 250ms of stereo at 44.1kHz covers every preset click
		sampleBuf: make([]float32, SAMPLE_RATE/4*CHANNEL_COUNT),
	}
}

// Render blocks until the tone has been written to the device. A zero volume
// still occupies the full duration.
func (r *ToneRenderer) Render(t Tone) error {
	r.sampleBuf = SynthesizeTone(r.sampleBuf, t, r.out.SampleRate(), r.out.ChannelCount())
	if len(r.sampleBuf) == 0 {
		return nil
	}
	if err := r.out.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("write %.2fHz %s tone: %w", t.Frequency, t.Wave, err)
	}
	return nil
}

// RenderTone plays a single tone on out.
func RenderTone(out Output, t Tone) error {
	return NewToneRenderer(out).Render(t)
}

// Beep plays the standard 440Hz sine beep.
func Beep(out Output) error {
	return BeepFrequency(out, BEEP_FREQUENCY)
}

func BeepFrequency(out Output, frequency float64) error {
	return RenderTone(out, Tone{
		Frequency: frequency,
		Duration:  BEEP_DURATION,
		Wave:      WAVE_SINE,
		Volume:    1.0,
	})
}
