// Package session loads practice-session files and follows edits to them.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/intuitionamiga/metronome"
)

// Session is the on-disk description of a practice setup. Fields left out
// of the file keep the preset's values.
type Session struct {
	Name            string  `json:"name,omitempty"`
	BPM             float64 `json:"bpm"`
	BeatsPerMeasure int     `json:"beatsPerMeasure"`
	Preset          string  `json:"preset,omitempty"`
	Pacing          string  `json:"pacing,omitempty"`

	AccentFrequency      float64 `json:"accentFrequency,omitempty"`
	RegularFrequency     float64 `json:"regularFrequency,omitempty"`
	SubdivisionFrequency float64 `json:"subdivisionFrequency,omitempty"`

	AccentMs      int `json:"accentMs,omitempty"`
	RegularMs     int `json:"regularMs,omitempty"`
	SubdivisionMs int `json:"subdivisionMs,omitempty"`

	AccentWave      *metronome.WaveType `json:"accentWave,omitempty"`
	RegularWave     *metronome.WaveType `json:"regularWave,omitempty"`
	SubdivisionWave *metronome.WaveType `json:"subdivisionWave,omitempty"`

	Subdivisions      int      `json:"subdivisions,omitempty"`
	SubdivisionVolume *float64 `json:"subdivisionVolume,omitempty"`
}

// Parse decodes and validates a session document.
func Parse(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Preset == "" {
		s.Preset = "default"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Session) Validate() error {
	if _, err := metronome.ParsePacing(s.Pacing); err != nil {
		return err
	}
	accent, err := s.AccentConfig()
	if err != nil {
		return err
	}
	return metronome.ValidateSettings(s.BPM, s.BeatsPerMeasure, accent)
}

// AccentConfig starts from the preset and applies every field the file sets.
func (s *Session) AccentConfig() (metronome.AccentConfig, error) {
	c, ok := metronome.LookupPreset(s.Preset)
	if !ok {
		return metronome.AccentConfig{}, fmt.Errorf("%w: unknown preset %q", metronome.ErrInvalidAccentConfig, s.Preset)
	}
	counts := []struct {
		field string
		v     int
	}{
		{"accentMs", s.AccentMs},
		{"regularMs", s.RegularMs},
		{"subdivisionMs", s.SubdivisionMs},
		{"subdivisions", s.Subdivisions},
	}
	for _, f := range counts {
		if f.v < 0 {
			return metronome.AccentConfig{}, fmt.Errorf("%w: %s %d is negative", metronome.ErrInvalidAccentConfig, f.field, f.v)
		}
	}
	setFloat(&c.AccentFrequency, s.AccentFrequency)
	setFloat(&c.RegularFrequency, s.RegularFrequency)
	setFloat(&c.SubdivisionFrequency, s.SubdivisionFrequency)
	setMs(&c.AccentDuration, s.AccentMs)
	setMs(&c.RegularDuration, s.RegularMs)
	setMs(&c.SubdivisionDuration, s.SubdivisionMs)
	setWave(&c.AccentWave, s.AccentWave)
	setWave(&c.RegularWave, s.RegularWave)
	setWave(&c.SubdivisionWave, s.SubdivisionWave)
	if s.Subdivisions > 0 {
		c.Subdivisions = s.Subdivisions
	}
	if s.SubdivisionVolume != nil {
		c.SubdivisionVolume = *s.SubdivisionVolume
	}
	return c, c.Validate()
}

// Apply copies the session onto m. A playing metronome keeps its old
// settings until it is started again.
func (s *Session) Apply(m *metronome.Metronome) error {
	accent, err := s.AccentConfig()
	if err != nil {
		return err
	}
	pacing, err := metronome.ParsePacing(s.Pacing)
	if err != nil {
		return err
	}
	if err := m.Reconfigure(s.BPM, s.BeatsPerMeasure, accent); err != nil {
		return err
	}
	m.SetPacing(pacing)
	return nil
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setMs(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

func setWave(dst *metronome.WaveType, w *metronome.WaveType) {
	if w != nil {
		*dst = *w
	}
}
