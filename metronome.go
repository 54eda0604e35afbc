// metronome.go - Metronome entity: tempo, measure, accent snapshot and play state

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
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	NO_MEASURE = 0     // Disables accenting
	MAX_TEMPO  = 60000 // One beat per millisecond
)

var metronomeIDs atomic.Uint64

// playState is shared by every handle (clone) of one logical metronome.
type playState struct {
	id      uint64
	running atomic.Bool

	mutex  sync.Mutex // Guards the fields below
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newPlayState() *playState {
	done := make(chan struct{})
	close(done)
	return &playState{
		id:   metronomeIDs.Add(1),
		done: done,
	}
}

// halt cancels the current loop. The loop notices at its next tick boundary.
func (st *playState) halt() {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.running.Store(false)
}

// finish records the exit of loop generation gen, unless a newer start has
// already replaced it.
func (st *playState) finish(gen uint64, err error) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	if gen != st.gen {
		return
	}
	if err != nil {
		st.err = err
	}
	st.cancel = nil
	st.running.Store(false)
}

// Metronome is one logical player. Start and Stop go through the Arbiter that
// created it, which keeps at most one metronome audible.
type Metronome struct {
	mutex           sync.RWMutex
	bpm             float64
	beatsPerMeasure int
	accent          AccentConfig
	pacing          Pacing
	onTick          func(Tick)

	out     Output
	arbiter *Arbiter
	logger  *zap.Logger
	clock   Clock
	state   *playState
}

func validateTempo(bpm float64) error {
	if !(bpm > 0) || bpm > MAX_TEMPO {
		return fmt.Errorf("%w: %g BPM", ErrInvalidTempo, bpm)
	}
	return nil
}

// validateTickPeriod rejects tempo and subdivision pairs whose tick rounds
// down to nothing, which would leave the loop clicking without a pause.
func validateTickPeriod(bpm float64, subdivisions int) error {
	if TickPeriod(bpm, subdivisions) <= 0 {
		return fmt.Errorf("%w: %g BPM with %d subdivisions is under 1ms per tick", ErrInvalidTempo, bpm, subdivisions)
	}
	return nil
}

func validateMeasure(beats int) error {
	if beats < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMeasure, beats)
	}
	return nil
}

// ValidateSettings checks a full metronome configuration without opening a
// device.
func ValidateSettings(bpm float64, beatsPerMeasure int, accent AccentConfig) error {
	if err := validateTempo(bpm); err != nil {
		return err
	}
	if err := validateMeasure(beatsPerMeasure); err != nil {
		return err
	}
	if err := accent.Validate(); err != nil {
		return err
	}
	return validateTickPeriod(bpm, accent.Subdivisions)
}

func newMetronome(arb *Arbiter, bpm float64, beatsPerMeasure int, accent AccentConfig, out Output) (*Metronome, error) {
	if err := ValidateSettings(bpm, beatsPerMeasure, accent); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: nil output", ErrNoOutputDevice)
	}
	st := newPlayState()
	return &Metronome{
		bpm:             bpm,
		beatsPerMeasure: beatsPerMeasure,
		accent:          accent,
		pacing:          PACING_DEADLINE,
		out:             out,
		arbiter:         arb,
		logger:          arb.logger.With(zap.Uint64("metronome_id", st.id)),
		clock:           systemClock{},
		state:           st,
	}, nil
}

// ID is the process-unique identity shared by all clones.
func (m *Metronome) ID() uint64 { return m.state.id }

func (m *Metronome) BPM() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.bpm
}

// SetBPM takes effect at the next Start.
func (m *Metronome) SetBPM(bpm float64) error {
	if err := validateTempo(bpm); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := validateTickPeriod(bpm, m.accent.Subdivisions); err != nil {
		return err
	}
	m.bpm = bpm
	return nil
}

func (m *Metronome) BeatsPerMeasure() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.beatsPerMeasure
}

func (m *Metronome) SetBeatsPerMeasure(beats int) error {
	if err := validateMeasure(beats); err != nil {
		return err
	}
	m.mutex.Lock()
	m.beatsPerMeasure = beats
	m.mutex.Unlock()
	return nil
}

func (m *Metronome) AccentConfig() AccentConfig {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.accent
}

func (m *Metronome) SetAccentConfig(cfg AccentConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := validateTickPeriod(m.bpm, cfg.Subdivisions); err != nil {
		return err
	}
	m.accent = cfg
	return nil
}

// Reconfigure replaces tempo, measure and accent config together, so a change
// that is only valid as a whole is not rejected halfway. Like the other
// setters it takes effect at the next Start.
func (m *Metronome) Reconfigure(bpm float64, beatsPerMeasure int, cfg AccentConfig) error {
	if err := ValidateSettings(bpm, beatsPerMeasure, cfg); err != nil {
		return err
	}
	m.mutex.Lock()
	m.bpm = bpm
	m.beatsPerMeasure = beatsPerMeasure
	m.accent = cfg
	m.mutex.Unlock()
	return nil
}

func (m *Metronome) Pacing() Pacing {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.pacing
}

func (m *Metronome) SetPacing(p Pacing) {
	m.mutex.Lock()
	m.pacing = p
	m.mutex.Unlock()
}

// OnTick registers fn to be called from the tick loop after every tick. It
// must return quickly; it runs between the click and the wait for the next.
func (m *Metronome) OnTick(fn func(Tick)) {
	m.mutex.Lock()
	m.onTick = fn
	m.mutex.Unlock()
}

// TickPeriod is the nominal spacing of ticks at the current settings.
func (m *Metronome) TickPeriod() time.Duration {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return TickPeriod(m.bpm, m.accent.Subdivisions)
}

func (m *Metronome) IsPlaying() bool { return m.state.running.Load() }

// Err returns the error that stopped the most recent loop, if a click write
// failed. Render failures are otherwise only visible in the log.
func (m *Metronome) Err() error {
	m.state.mutex.Lock()
	defer m.state.mutex.Unlock()
	return m.state.err
}

// Done is closed when the most recently started loop has exited.
func (m *Metronome) Done() <-chan struct{} {
	m.state.mutex.Lock()
	defer m.state.mutex.Unlock()
	return m.state.done
}

// Clone returns an independent handle to the same logical metronome: it has
// its own settings but shares identity and play state.
func (m *Metronome) Clone() *Metronome {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return &Metronome{
		bpm:             m.bpm,
		beatsPerMeasure: m.beatsPerMeasure,
		accent:          m.accent,
		pacing:          m.pacing,
		onTick:          m.onTick,
		out:             m.out,
		arbiter:         m.arbiter,
		logger:          m.logger,
		clock:           m.clock,
		state:           m.state,
	}
}

// Start makes this metronome the audible one, stopping whichever was playing.
func (m *Metronome) Start() error {
	return m.arbiter.Start(m)
}

func (m *Metronome) Stop() {
	m.arbiter.Stop(m)
}

type loopSnapshot struct {
	bpm             float64
	beatsPerMeasure int
	accent          AccentConfig
	pacing          Pacing
	onTick          func(Tick)
}

func (m *Metronome) snapshot() loopSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return loopSnapshot{
		bpm:             m.bpm,
		beatsPerMeasure: m.beatsPerMeasure,
		accent:          m.accent,
		pacing:          m.pacing,
		onTick:          m.onTick,
	}
}
