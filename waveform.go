// waveform.go - Oscillator shapes used for metronome clicks

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
	"strings"
)

const TWO_PI = 2 * math.Pi

const (
	MAX_SAMPLE = 1.0
	MIN_SAMPLE = -1.0
)

// WaveType selects the periodic waveform a click is synthesized from.
type WaveType int

const (
	WAVE_SINE WaveType = iota
	WAVE_SQUARE
	WAVE_SAWTOOTH
	WAVE_TRIANGLE
)

func (w WaveType) String() string {
	switch w {
	case WAVE_SINE:
		return "sine"
	case WAVE_SQUARE:
		return "square"
	case WAVE_SAWTOOTH:
		return "sawtooth"
	case WAVE_TRIANGLE:
		return "triangle"
	default:
		return fmt.Sprintf("wave(%d)", int(w))
	}
}

// ParseWaveType accepts the wave names case-insensitively, plus the short
// forms "saw" and "tri".
func ParseWaveType(s string) (WaveType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin":
		return WAVE_SINE, nil
	case "square", "sq":
		return WAVE_SQUARE, nil
	case "sawtooth", "saw":
		return WAVE_SAWTOOTH, nil
	case "triangle", "tri":
		return WAVE_TRIANGLE, nil
	}
	return WAVE_SINE, fmt.Errorf("unknown wave type %q (want sine, square, sawtooth or triangle)", s)
}

func (w WaveType) MarshalText() ([]byte, error) {
	if w < WAVE_SINE || w > WAVE_TRIANGLE {
		return nil, fmt.Errorf("cannot marshal %s", w)
	}
	return []byte(w.String()), nil
}

func (w *WaveType) UnmarshalText(text []byte) error {
	parsed, err := ParseWaveType(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// wrapPhase reduces phase into [0, 2π).
func wrapPhase(phase float64) float64 {
	if phase >= 0 && phase < TWO_PI {
		return phase
	}
	phase = math.Mod(phase, TWO_PI)
	if phase < 0 {
		phase += TWO_PI
	}
	// math.Mod can return a value a hair below 0 that rounds up to 2π
	if phase >= TWO_PI {
		phase = 0
	}
	return phase
}

// SampleWave returns the amplitude of wave at phase (radians). Any phase is
// accepted and reduced modulo 2π. The result is always within [-1, 1];
// unknown wave types are silent.
func SampleWave(wave WaveType, phase float64) float64 {
	if math.IsNaN(phase) || math.IsInf(phase, 0) {
		return 0
	}
	phase = wrapPhase(phase)

	switch wave {
	case WAVE_SINE:
		return math.Sin(phase)
	case WAVE_SQUARE:
		if phase < math.Pi {
			return 1
		}
		return -1
	case WAVE_SAWTOOTH:
		// -1 at phase 0 rising to +1 at the wrap
		return phase/math.Pi - 1
	case WAVE_TRIANGLE:
		if phase < math.Pi {
			return -1 + 2*phase/math.Pi
		}
		return 3 - 2*phase/math.Pi
	}
	return 0
}
