// arbiter.go - Exclusive playback across metronomes

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
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome/internal/metrics"
)

// Arbiter holds at most one current metronome. Starting a metronome through
// it stops the previous holder. Create one at the application root, make
// metronomes from it and Close it when done.
//
// The arbiter opens a single Output and hands it to every metronome it
// creates, since only one of them is audible at a time.
//
// A preempted loop finishes the click or wait it is in before it exits, so two
// metronomes can overlap for up to one tick.
type Arbiter struct {
	mutex   sync.Mutex // Held only to swap current
	current *Metronome

	logger *zap.Logger
	open   OutputOpener

	outMutex sync.Mutex // Guards out
	out      Output
}

// NewArbiter returns an arbiter that opens outputs with open, or with
// OpenDefaultOutput when open is nil. A nil logger discards logs.
func NewArbiter(logger *zap.Logger, open OutputOpener) *Arbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if open == nil {
		open = OpenDefaultOutput
	}
	return &Arbiter{logger: logger, open: open}
}

// NewMetronome creates a metronome with the default accent config. Pass
// NO_MEASURE as beatsPerMeasure for no accents.
func (a *Arbiter) NewMetronome(bpm float64, beatsPerMeasure int) (*Metronome, error) {
	return a.NewMetronomeWithAccent(bpm, beatsPerMeasure, DefaultAccentConfig())
}

// NewMetronomeWithAccent acquires an output and creates a metronome. Output
// failures wrap ErrNoOutputDevice.
func (a *Arbiter) NewMetronomeWithAccent(bpm float64, beatsPerMeasure int, accent AccentConfig) (*Metronome, error) {
	if err := ValidateSettings(bpm, beatsPerMeasure, accent); err != nil {
		return nil, err
	}
	out, err := a.output()
	if err != nil {
		return nil, err
	}
	return a.NewMetronomeWithOutput(bpm, beatsPerMeasure, accent, out)
}

// output returns the shared output, opening it on first use.
func (a *Arbiter) output() (Output, error) {
	a.outMutex.Lock()
	defer a.outMutex.Unlock()
	if a.out != nil {
		return a.out, nil
	}
	out, err := a.open()
	if err != nil {
		if !errors.Is(err, ErrNoOutputDevice) {
			err = fmt.Errorf("%w: %v", ErrNoOutputDevice, err)
		}
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: opener returned nil", ErrNoOutputDevice)
	}
	a.out = out
	return out, nil
}

// discardOutput closes out after a failed write if it is the shared output,
// so the next metronome opens a fresh one.
func (a *Arbiter) discardOutput(out Output) {
	a.outMutex.Lock()
	if a.out != out {
		a.outMutex.Unlock()
		return
	}
	a.out = nil
	a.outMutex.Unlock()

	if err := out.Close(); err != nil {
		a.logger.Warn("closing failed output", zap.Error(err))
	}
}

// NewMetronomeWithOutput creates a metronome on an already opened output. The
// caller keeps ownership of out; the arbiter never closes it.
func (a *Arbiter) NewMetronomeWithOutput(bpm float64, beatsPerMeasure int, accent AccentConfig, out Output) (*Metronome, error) {
	return newMetronome(a, bpm, beatsPerMeasure, accent, out)
}

// Start registers m as current, halts the previous holder outside the lock,
// then launches m's loop.
func (a *Arbiter) Start(m *Metronome) error {
	if m == nil {
		return fmt.Errorf("start: nil metronome")
	}
	a.mutex.Lock()
	prev := a.current
	a.current = m.Clone()
	a.mutex.Unlock()

	if prev != nil && prev.ID() != m.ID() {
		if prev.IsPlaying() {
			metrics.PreemptionsTotal.Inc()
		}
		prev.state.halt()
		a.logger.Info("metronome preempted",
			zap.Uint64("stopped_id", prev.ID()),
			zap.Uint64("started_id", m.ID()),
		)
	}

	m.launch()
	metrics.StartsTotal.Inc()

	// A concurrent Start may have replaced m between the swap and the launch;
	// its halt ran before m was running, so halt m here instead.
	a.mutex.Lock()
	stillCurrent := a.current != nil && a.current.ID() == m.ID()
	a.mutex.Unlock()
	if !stillCurrent {
		m.state.halt()
		return nil
	}
	metrics.Active.Set(1)
	return nil
}

// Stop halts m and unregisters it if it is the current holder. Any handle to
// the same metronome matches.
func (a *Arbiter) Stop(m *Metronome) {
	if m == nil {
		return
	}
	m.state.halt()

	a.mutex.Lock()
	if a.current != nil && a.current.ID() == m.ID() {
		a.current = nil
		metrics.Active.Set(0)
	}
	a.mutex.Unlock()

	a.logger.Info("metronome stopped", zap.Uint64("metronome_id", m.ID()))
}

// StopAll halts and unregisters the current holder, if any.
func (a *Arbiter) StopAll() {
	a.mutex.Lock()
	prev := a.current
	a.current = nil
	a.mutex.Unlock()

	if prev == nil {
		return
	}
	prev.state.halt()
	metrics.Active.Set(0)
	a.logger.Info("metronome stopped", zap.Uint64("metronome_id", prev.ID()))
}

// Current returns the registered holder or nil. A holder whose loop died on a
// write error stays registered until the next Start, Stop or StopAll.
func (a *Arbiter) Current() *Metronome {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.current
}

// Close stops the current metronome, waits for its loop to finish the click
// in progress and releases the shared output. Metronomes made afterwards
// open a new one.
func (a *Arbiter) Close() error {
	a.mutex.Lock()
	prev := a.current
	a.current = nil
	a.mutex.Unlock()

	if prev != nil {
		prev.state.halt()
		metrics.Active.Set(0)
		<-prev.Done()
	}

	a.outMutex.Lock()
	out := a.out
	a.out = nil
	a.outMutex.Unlock()
	if out == nil {
		return nil
	}
	return out.Close()
}
