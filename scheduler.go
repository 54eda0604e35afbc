// scheduler.go - Beat/subdivision decision table and tick pacing

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
	"time"
)

// TickKind is the decision taken for one tick.
type TickKind int

const (
	TICK_ACCENT TickKind = iota
	TICK_REGULAR
	TICK_SUBDIVISION
	TICK_SILENT
)

func (k TickKind) String() string {
	switch k {
	case TICK_ACCENT:
		return "accent"
	case TICK_REGULAR:
		return "regular"
	case TICK_SUBDIVISION:
		return "subdivision"
	case TICK_SILENT:
		return "silent"
	default:
		return fmt.Sprintf("tick(%d)", int(k))
	}
}

// Tick is one scheduling decision together with the counters it was taken at.
type Tick struct {
	Kind        TickKind
	Beat        uint64
	Subdivision int
	Tone        Tone
}

// ClassifyTick applies the decision table in precedence order. A
// beatsPerMeasure of 0 disables accents.
func ClassifyTick(beatsPerMeasure, subdivisions int, beat uint64, sub int) TickKind {
	switch {
	case beatsPerMeasure > 0 && beat%uint64(beatsPerMeasure) == 0 && sub == 0:
		return TICK_ACCENT
	case sub == 0:
		return TICK_REGULAR
	case subdivisions > 1:
		return TICK_SUBDIVISION
	default:
		// Unreachable while sub < subdivisions; kept as the table's fallback
		return TICK_SILENT
	}
}

// TickPeriod is the nominal spacing between ticks. The beat period is
// truncated to whole milliseconds and then divided by the subdivision count
// with integer division, so 90 BPM in triplets gives 222ms.
func TickPeriod(bpm float64, subdivisions int) time.Duration {
	if !(bpm > 0) {
		return 0
	}
	if subdivisions < 1 {
		subdivisions = 1
	}
	beatMs := int64(60000.0 / bpm)
	return time.Duration(beatMs/int64(subdivisions)) * time.Millisecond
}

// beatScheduler owns the counter pair and an immutable config snapshot.
type beatScheduler struct {
	cfg             AccentConfig
	beatsPerMeasure int
	beat            uint64
	sub             int
}

func newBeatScheduler(cfg AccentConfig, beatsPerMeasure int) *beatScheduler {
	if cfg.Subdivisions < 1 {
		cfg.Subdivisions = 1
	}
	return &beatScheduler{cfg: cfg, beatsPerMeasure: beatsPerMeasure}
}

// next decides the current tick and then advances the counters.
func (s *beatScheduler) next() Tick {
	tick := Tick{
		Kind:        ClassifyTick(s.beatsPerMeasure, s.cfg.Subdivisions, s.beat, s.sub),
		Beat:        s.beat,
		Subdivision: s.sub,
	}

	switch tick.Kind {
	case TICK_ACCENT:
		tick.Tone = Tone{s.cfg.AccentFrequency, s.cfg.AccentDuration, s.cfg.AccentWave, 1.0}
	case TICK_REGULAR:
		tick.Tone = Tone{s.cfg.RegularFrequency, s.cfg.RegularDuration, s.cfg.RegularWave, 1.0}
	case TICK_SUBDIVISION:
		tick.Tone = Tone{s.cfg.SubdivisionFrequency, s.cfg.SubdivisionDuration, s.cfg.SubdivisionWave, s.cfg.SubdivisionVolume}
	}

	s.sub = (s.sub + 1) % s.cfg.Subdivisions
	if s.sub == 0 {
		s.beat++
	}
	return tick
}

// Pacing selects how the loop waits between ticks.
type Pacing int

const (
	// PACING_DEADLINE sleeps to epoch + n*period so sleep overshoot does not
	// accumulate.
	PACING_DEADLINE Pacing = iota
	// PACING_RELATIVE sleeps period minus the click length after every click.
	// Each tick's overhead adds to the next, so long runs drift late.
	PACING_RELATIVE
)

func (p Pacing) String() string {
	switch p {
	case PACING_DEADLINE:
		return "deadline"
	case PACING_RELATIVE:
		return "relative"
	default:
		return fmt.Sprintf("pacing(%d)", int(p))
	}
}

func ParsePacing(s string) (Pacing, error) {
	switch s {
	case "deadline", "":
		return PACING_DEADLINE, nil
	case "relative":
		return PACING_RELATIVE, nil
	}
	return PACING_DEADLINE, fmt.Errorf("unknown pacing %q (want deadline or relative)", s)
}

// Clock is the time source of a tick loop.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// pacer computes the wait after each tick.
type pacer struct {
	mode   Pacing
	period time.Duration
	clock  Clock
	epoch  time.Time
	n      int64
}

func newPacer(mode Pacing, period time.Duration, clock Clock) *pacer {
	return &pacer{mode: mode, period: period, clock: clock, epoch: clock.Now()}
}

// wait sleeps until the next tick is due and returns how late the previous
// deadline was already missed (zero when on time, always zero for relative
// pacing).
func (p *pacer) wait(played time.Duration) time.Duration {
	p.n++
	switch p.mode {
	case PACING_RELATIVE:
		if rest := p.period - played; rest > 0 {
			p.clock.Sleep(rest)
		}
		return 0
	default:
		due := p.epoch.Add(time.Duration(p.n) * p.period)
		rest := due.Sub(p.clock.Now())
		if rest > 0 {
			p.clock.Sleep(rest)
			return 0
		}
		late := -rest
		if late > p.period {
			// Too far behind to catch up without a burst of clicks
			p.epoch = p.clock.Now().Add(-time.Duration(p.n) * p.period)
		}
		return late
	}
}
