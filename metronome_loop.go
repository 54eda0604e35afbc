// metronome_loop.go - Tick loop goroutine

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
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome/internal/metrics"
)

type tickLoop struct {
	sched    *beatScheduler
	renderer *ToneRenderer
	pacer    *pacer
	running  *atomic.Bool
	logger   *zap.Logger
	onTick   func(Tick)
}

// run clicks until ctx is cancelled or the running flag drops, checking once
// per tick. A click or a wait in progress is never cut short. A failed write
// ends the loop and is returned.
func (l *tickLoop) run(ctx context.Context) error {
	for ctx.Err() == nil && l.running.Load() {
		tick := l.sched.next()
		metrics.TicksTotal.WithLabelValues(tick.Kind.String()).Inc()

		if tick.Kind == TICK_SILENT {
			continue
		}

		if err := l.renderer.Render(tick.Tone); err != nil {
			metrics.RenderErrorsTotal.Inc()
			l.logger.Error("metronome click failed, stopping",
				zap.Stringer("kind", tick.Kind),
				zap.Uint64("beat", tick.Beat),
				zap.Int("subdivision", tick.Subdivision),
				zap.Error(err),
			)
			return err
		}

		if l.onTick != nil {
			l.onTick(tick)
		}

		if late := l.pacer.wait(tick.Tone.Duration); late > 0 {
			metrics.TickLateness.Observe(float64(late) / float64(time.Millisecond))
		}
	}
	return nil
}

// launch starts a new loop generation for m from a snapshot of its settings.
// Any loop still running for the same metronome is cancelled first.
func (m *Metronome) launch() {
	snap := m.snapshot()
	period := TickPeriod(snap.bpm, snap.accent.Subdivisions)
	m.warnOverlap(snap, period)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	st := m.state
	st.mutex.Lock()
	if st.cancel != nil {
		st.cancel()
	}
	st.gen++
	gen := st.gen
	st.cancel = cancel
	st.done = done
	st.err = nil
	st.running.Store(true)
	st.mutex.Unlock()

	loop := &tickLoop{
		sched:    newBeatScheduler(snap.accent, snap.beatsPerMeasure),
		renderer: NewToneRenderer(m.out),
		pacer:    newPacer(snap.pacing, period, m.clock),
		running:  &st.running,
		logger:   m.logger,
		onTick:   snap.onTick,
	}

	m.logger.Info("metronome started",
		zap.Float64("bpm", snap.bpm),
		zap.Int("beats_per_measure", snap.beatsPerMeasure),
		zap.Int("subdivisions", snap.accent.Subdivisions),
		zap.Duration("tick_period", period),
		zap.Stringer("pacing", snap.pacing),
	)

	go func() {
		defer close(done)
		defer cancel()
		err := loop.run(ctx)
		st.finish(gen, err)
		if err != nil {
			m.arbiter.discardOutput(m.out)
		}
		m.logger.Debug("metronome loop exited", zap.Uint64("generation", gen))
	}()
}

// warnOverlap logs clicks that are longer than the slot they play in. They
// are still played in full, which stretches that tick.
func (m *Metronome) warnOverlap(snap loopSnapshot, period time.Duration) {
	voices := []struct {
		name   string
		d      time.Duration
		active bool
	}{
		{"accent", snap.accent.AccentDuration, snap.beatsPerMeasure > 0},
		{"regular", snap.accent.RegularDuration, true},
		{"subdivision", snap.accent.SubdivisionDuration, snap.accent.Subdivisions > 1},
	}
	for _, v := range voices {
		if v.active && v.d > period {
			m.logger.Warn("click longer than tick period, tempo will drag",
				zap.String("voice", v.name),
				zap.Duration("click", v.d),
				zap.Duration("tick_period", period),
			)
		}
	}
}
