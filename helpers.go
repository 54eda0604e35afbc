// helpers.go - One-call metronome setups on an Arbiter

package metronome

import (
	"context"
	"time"
)

// SUBDIVISION_CUSTOM_FREQUENCY is the subdivision pitch used by
// StartWithSubdivisions.
const SUBDIVISION_CUSTOM_FREQUENCY = 330.0

func (a *Arbiter) startWith(bpm float64, beatsPerMeasure int, cfg AccentConfig) (*Metronome, error) {
	m, err := a.NewMetronomeWithAccent(bpm, beatsPerMeasure, cfg)
	if err != nil {
		return nil, err
	}
	if err := m.Start(); err != nil {
		return nil, err
	}
	return m, nil
}

// StartSimple plays an unaccented pulse until stopped.
func (a *Arbiter) StartSimple(bpm float64) (*Metronome, error) {
	return a.startWith(bpm, NO_MEASURE, DefaultAccentConfig())
}

func (a *Arbiter) StartWithTimeSignature(bpm float64, beatsPerMeasure int) (*Metronome, error) {
	return a.startWith(bpm, beatsPerMeasure, DefaultAccentConfig())
}

func (a *Arbiter) StartCustom(bpm float64, beatsPerMeasure int, cfg AccentConfig) (*Metronome, error) {
	return a.startWith(bpm, beatsPerMeasure, cfg)
}

// StartPractice uses the subtle accent.
func (a *Arbiter) StartPractice(bpm float64, beatsPerMeasure int) (*Metronome, error) {
	return a.startWith(bpm, beatsPerMeasure, SubtleAccent())
}

// StartPerformance uses the strong accent.
func (a *Arbiter) StartPerformance(bpm float64, beatsPerMeasure int) (*Metronome, error) {
	return a.startWith(bpm, beatsPerMeasure, StrongAccent())
}

func (a *Arbiter) StartEighthNotes(bpm float64, beatsPerMeasure int) (*Metronome, error) {
	return a.startWith(bpm, beatsPerMeasure, EighthNotes())
}

func (a *Arbiter) StartSixteenthNotes(bpm float64, beatsPerMeasure int) (*Metronome, error) {
	return a.startWith(bpm, beatsPerMeasure, SixteenthNotes())
}

func (a *Arbiter) StartTriplets(bpm float64, beatsPerMeasure int) (*Metronome, error) {
	return a.startWith(bpm, beatsPerMeasure, Triplets())
}

func (a *Arbiter) StartWithSubdivisions(bpm float64, beatsPerMeasure, subdivisions int, subdivisionVolume float64) (*Metronome, error) {
	cfg := CustomSubdivisions(subdivisions, SUBDIVISION_CUSTOM_FREQUENCY, subdivisionVolume)
	return a.startWith(bpm, beatsPerMeasure, cfg)
}

// PlayFor starts a metronome, blocks for d or until ctx is done, then stops
// it. It returns once the stop has been issued; the final click may still be
// sounding.
func (a *Arbiter) PlayFor(ctx context.Context, bpm float64, beatsPerMeasure int, d time.Duration) error {
	return a.PlayCustomFor(ctx, bpm, beatsPerMeasure, DefaultAccentConfig(), d)
}

func (a *Arbiter) PlayCustomFor(ctx context.Context, bpm float64, beatsPerMeasure int, cfg AccentConfig, d time.Duration) error {
	m, err := a.startWith(bpm, beatsPerMeasure, cfg)
	if err != nil {
		return err
	}
	defer m.Stop()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
