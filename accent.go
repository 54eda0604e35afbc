// accent.go - Accent, regular and subdivision click configuration

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
	"sort"
	"time"
)

const (
	NOTE_A4 = 440.0
	NOTE_C5 = 523.25
	NOTE_D5 = 587.33
	NOTE_E5 = 659.25
	NOTE_F5 = 698.46
	NOTE_A5 = 880.0
	NOTE_C6 = 1046.5
	NOTE_A6 = 1760.0

	NOTE_E5_JUST = 660.0 // Subtle accent, a fifth above A4
)

// AccentConfig describes the three click voices of a metronome. It is a plain
// value: copies are independent and a running metronome keeps the copy it
// started with.
type AccentConfig struct {
	AccentFrequency      float64
	RegularFrequency     float64
	SubdivisionFrequency float64

	AccentDuration      time.Duration
	RegularDuration     time.Duration
	SubdivisionDuration time.Duration

	AccentWave      WaveType
	RegularWave     WaveType
	SubdivisionWave WaveType

	// Subdivisions is the number of ticks per beat; 1 disables subdivision clicks.
	Subdivisions      int
	SubdivisionVolume float64
}

// DefaultAccentConfig is an octave accent over A4 with no subdivisions.
func DefaultAccentConfig() AccentConfig {
	return AccentConfig{
		AccentFrequency:      NOTE_A5,
		RegularFrequency:     NOTE_A4,
		SubdivisionFrequency: NOTE_C5,
		AccentDuration:       150 * time.Millisecond,
		RegularDuration:      100 * time.Millisecond,
		SubdivisionDuration:  80 * time.Millisecond,
		AccentWave:           WAVE_SINE,
		RegularWave:          WAVE_SINE,
		SubdivisionWave:      WAVE_SINE,
		Subdivisions:         1,
		SubdivisionVolume:    0.7,
	}
}

// NewAccentConfig sets the beat voices and leaves subdivision fields at their
// defaults.
func NewAccentConfig(accentFreq, regularFreq float64, accentDur, regularDur time.Duration, accentWave, regularWave WaveType) AccentConfig {
	c := DefaultAccentConfig()
	c.AccentFrequency = accentFreq
	c.RegularFrequency = regularFreq
	c.AccentDuration = accentDur
	c.RegularDuration = regularDur
	c.AccentWave = accentWave
	c.RegularWave = regularWave
	return c
}

func AccentConfigWithSubdivisions(accentFreq, regularFreq float64, subdivisions int, subdivisionFreq float64) AccentConfig {
	c := DefaultAccentConfig()
	c.AccentFrequency = accentFreq
	c.RegularFrequency = regularFreq
	c.Subdivisions = subdivisions
	c.SubdivisionFrequency = subdivisionFreq
	c.SubdivisionDuration = 70 * time.Millisecond
	c.SubdivisionVolume = 0.65
	return c
}

func AccentConfigWithWaveTypes(accentWave, regularWave WaveType) AccentConfig {
	c := DefaultAccentConfig()
	c.AccentWave = accentWave
	c.RegularWave = regularWave
	return c
}

func AccentConfigWithWaveType(wave WaveType) AccentConfig {
	return AccentConfigWithWaveTypes(wave, wave)
}

// SubtleAccent uses a fifth instead of an octave for practice sessions.
func SubtleAccent() AccentConfig {
	c := DefaultAccentConfig()
	c.AccentFrequency = NOTE_E5_JUST
	c.AccentDuration = 120 * time.Millisecond
	return c
}

// StrongAccent is two octaves up and long, for loud rooms.
func StrongAccent() AccentConfig {
	c := DefaultAccentConfig()
	c.AccentFrequency = NOTE_A6
	c.AccentDuration = 200 * time.Millisecond
	c.RegularDuration = 80 * time.Millisecond
	return c
}

func StrongSquareAccent() AccentConfig {
	c := StrongAccent()
	c.AccentWave = WAVE_SQUARE
	return c
}

func SubtleTriangleAccent() AccentConfig {
	c := SubtleAccent()
	c.AccentWave = WAVE_TRIANGLE
	c.RegularWave = WAVE_TRIANGLE
	return c
}

func EighthNotes() AccentConfig {
	c := DefaultAccentConfig()
	c.Subdivisions = 2
	c.SubdivisionFrequency = NOTE_D5
	c.SubdivisionDuration = 70 * time.Millisecond
	c.SubdivisionVolume = 0.65
	return c
}

// SixteenthNotes uses a square subdivision so fast clicks cut through.
func SixteenthNotes() AccentConfig {
	c := DefaultAccentConfig()
	c.Subdivisions = 4
	c.SubdivisionFrequency = NOTE_E5
	c.SubdivisionDuration = 80 * time.Millisecond
	c.SubdivisionWave = WAVE_SQUARE
	c.SubdivisionVolume = 0.55
	return c
}

func Triplets() AccentConfig {
	c := DefaultAccentConfig()
	c.Subdivisions = 3
	c.SubdivisionFrequency = NOTE_C5
	c.SubdivisionDuration = 65 * time.Millisecond
	c.SubdivisionWave = WAVE_TRIANGLE
	c.SubdivisionVolume = 0.6
	return c
}

func CustomSubdivisions(subdivisions int, subdivisionFreq, subdivisionVolume float64) AccentConfig {
	c := DefaultAccentConfig()
	c.Subdivisions = subdivisions
	c.SubdivisionFrequency = subdivisionFreq
	c.SubdivisionDuration = 70 * time.Millisecond
	c.SubdivisionVolume = subdivisionVolume
	return c
}

// PracticeSubdivisions is loud eighth notes.
func PracticeSubdivisions() AccentConfig {
	c := EighthNotes()
	c.SubdivisionDuration = 80 * time.Millisecond
	c.SubdivisionVolume = 0.75
	return c
}

// TechnicalSubdivisions is bright sixteenths for fast passages.
func TechnicalSubdivisions() AccentConfig {
	return AccentConfig{
		AccentFrequency:      NOTE_C6,
		RegularFrequency:     NOTE_C5,
		SubdivisionFrequency: NOTE_F5,
		AccentDuration:       120 * time.Millisecond,
		RegularDuration:      80 * time.Millisecond,
		SubdivisionDuration:  70 * time.Millisecond,
		AccentWave:           WAVE_SQUARE,
		RegularWave:          WAVE_SINE,
		SubdivisionWave:      WAVE_SQUARE,
		Subdivisions:         4,
		SubdivisionVolume:    0.6,
	}
}

func (c AccentConfig) WithSubdivisions(subdivisions int) AccentConfig {
	c.Subdivisions = subdivisions
	return c
}

func (c AccentConfig) WithSubdivisionFrequency(frequency float64) AccentConfig {
	c.SubdivisionFrequency = frequency
	return c
}

func (c AccentConfig) WithSubdivisionVolume(volume float64) AccentConfig {
	c.SubdivisionVolume = volume
	return c
}

func (c AccentConfig) WithSubdivisionWaveType(wave WaveType) AccentConfig {
	c.SubdivisionWave = wave
	return c
}

// Validate checks field domains. It does not compare click lengths against
// the tempo; see Metronome for that.
func (c AccentConfig) Validate() error {
	freqs := []struct {
		name string
		hz   float64
	}{
		{"accent", c.AccentFrequency},
		{"regular", c.RegularFrequency},
		{"subdivision", c.SubdivisionFrequency},
	}
	for _, f := range freqs {
		if !(f.hz > 0) {
			return fmt.Errorf("%w: %s frequency must be positive, got %g", ErrInvalidAccentConfig, f.name, f.hz)
		}
	}

	durs := []struct {
		name string
		d    time.Duration
	}{
		{"accent", c.AccentDuration},
		{"regular", c.RegularDuration},
		{"subdivision", c.SubdivisionDuration},
	}
	for _, d := range durs {
		if d.d < 0 {
			return fmt.Errorf("%w: %s duration must not be negative, got %s", ErrInvalidAccentConfig, d.name, d.d)
		}
	}

	if c.Subdivisions < 1 {
		return fmt.Errorf("%w: subdivisions must be at least 1, got %d", ErrInvalidAccentConfig, c.Subdivisions)
	}
	if !(c.SubdivisionVolume >= 0 && c.SubdivisionVolume <= 1) {
		return fmt.Errorf("%w: subdivision volume must be within [0, 1], got %g", ErrInvalidAccentConfig, c.SubdivisionVolume)
	}
	return nil
}

var presets = map[string]func() AccentConfig{
	"default":         DefaultAccentConfig,
	"subtle":          SubtleAccent,
	"strong":          StrongAccent,
	"strong-square":   StrongSquareAccent,
	"subtle-triangle": SubtleTriangleAccent,
	"eighth":          EighthNotes,
	"sixteenth":       SixteenthNotes,
	"triplets":        Triplets,
	"practice":        PracticeSubdivisions,
	"technical":       TechnicalSubdivisions,
}

// PresetNames lists the names accepted by LookupPreset, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupPreset(name string) (AccentConfig, bool) {
	fn, ok := presets[name]
	if !ok {
		return AccentConfig{}, false
	}
	return fn(), true
}
