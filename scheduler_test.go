// scheduler_test.go - Tick classification, period arithmetic and pacing

package metronome

import (
	"testing"
	"time"
)

func kinds(s *beatScheduler, n int) []TickKind {
	out := make([]TickKind, n)
	for i := range out {
		out[i] = s.next().Kind
	}
	return out
}

func equalKinds(a, b []TickKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScheduler_AccentsOnDownbeats(t *testing.T) {
	s := newBeatScheduler(DefaultAccentConfig(), 4)
	got := kinds(s, 9)
	A, R := TICK_ACCENT, TICK_REGULAR
	want := []TickKind{A, R, R, R, A, R, R, R, A}
	if !equalKinds(got, want) {
		t.Errorf("4/4 = %v, want %v", got, want)
	}
}

func TestScheduler_SubdividedMeasure(t *testing.T) {
	s := newBeatScheduler(EighthNotes(), 3)
	got := kinds(s, 8)
	A, R, S := TICK_ACCENT, TICK_REGULAR, TICK_SUBDIVISION
	want := []TickKind{A, S, R, S, R, S, A, S}
	if !equalKinds(got, want) {
		t.Errorf("3/4 eighths = %v, want %v", got, want)
	}
}

func TestScheduler_NoMeasureNeverAccents(t *testing.T) {
	s := newBeatScheduler(Triplets(), NO_MEASURE)
	for i, k := range kinds(s, 30) {
		if k == TICK_ACCENT {
			t.Fatalf("tick %d accented without a measure", i)
		}
		want := TICK_SUBDIVISION
		if i%3 == 0 {
			want = TICK_REGULAR
		}
		if k != want {
			t.Errorf("tick %d = %s, want %s", i, k, want)
		}
	}
}

func TestScheduler_Counters(t *testing.T) {
	s := newBeatScheduler(Triplets(), 2)
	for i := 0; i < 12; i++ {
		tick := s.next()
		if tick.Beat != uint64(i/3) || tick.Subdivision != i%3 {
			t.Fatalf("tick %d at beat %d sub %d, want beat %d sub %d",
				i, tick.Beat, tick.Subdivision, i/3, i%3)
		}
	}
}

func TestScheduler_TonesFollowConfig(t *testing.T) {
	cfg := SixteenthNotes()
	s := newBeatScheduler(cfg, 4)

	accent := s.next().Tone
	if accent != (Tone{cfg.AccentFrequency, cfg.AccentDuration, cfg.AccentWave, 1}) {
		t.Errorf("accent tone = %+v", accent)
	}
	sub := s.next().Tone
	if sub != (Tone{cfg.SubdivisionFrequency, cfg.SubdivisionDuration, cfg.SubdivisionWave, cfg.SubdivisionVolume}) {
		t.Errorf("subdivision tone = %+v", sub)
	}
	s.next()
	s.next()
	regular := s.next().Tone
	if regular != (Tone{cfg.RegularFrequency, cfg.RegularDuration, cfg.RegularWave, 1}) {
		t.Errorf("regular tone = %+v", regular)
	}
}

func TestScheduler_ClampsSubdivisions(t *testing.T) {
	cfg := DefaultAccentConfig()
	cfg.Subdivisions = 0
	s := newBeatScheduler(cfg, 2)
	got := kinds(s, 4)
	want := []TickKind{TICK_ACCENT, TICK_REGULAR, TICK_ACCENT, TICK_REGULAR}
	if !equalKinds(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestClassifyTick(t *testing.T) {
	tests := []struct {
		beats, subs int
		beat        uint64
		sub         int
		want        TickKind
	}{
		{4, 1, 0, 0, TICK_ACCENT},
		{4, 1, 8, 0, TICK_ACCENT},
		{4, 1, 5, 0, TICK_REGULAR},
		{4, 2, 4, 1, TICK_SUBDIVISION},
		{0, 1, 0, 0, TICK_REGULAR},
		{0, 4, 0, 3, TICK_SUBDIVISION},
		{1, 1, 7, 0, TICK_ACCENT},
		// Fallback row: off-beat position without subdivisions
		{4, 1, 1, 1, TICK_SILENT},
	}
	for _, tt := range tests {
		if got := ClassifyTick(tt.beats, tt.subs, tt.beat, tt.sub); got != tt.want {
			t.Errorf("ClassifyTick(%d, %d, %d, %d) = %s, want %s",
				tt.beats, tt.subs, tt.beat, tt.sub, got, tt.want)
		}
	}
}

func TestTickPeriod(t *testing.T) {
	tests := []struct {
		bpm  float64
		subs int
		want time.Duration
	}{
		{120, 1, 500 * time.Millisecond},
		{120, 2, 250 * time.Millisecond},
		{90, 3, 222 * time.Millisecond},
		{100, 4, 150 * time.Millisecond},
		{7, 1, 8571 * time.Millisecond},
		{133.3, 1, 450 * time.Millisecond},
		{120, 0, 500 * time.Millisecond},
		{0, 1, 0},
		{-60, 1, 0},
	}
	for _, tt := range tests {
		if got := TickPeriod(tt.bpm, tt.subs); got != tt.want {
			t.Errorf("TickPeriod(%g, %d) = %s, want %s", tt.bpm, tt.subs, got, tt.want)
		}
	}
}

func TestParsePacing(t *testing.T) {
	for in, want := range map[string]Pacing{"": PACING_DEADLINE, "deadline": PACING_DEADLINE, "relative": PACING_RELATIVE} {
		got, err := ParsePacing(in)
		if err != nil || got != want {
			t.Errorf("ParsePacing(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParsePacing("swing"); err == nil {
		t.Error("ParsePacing(swing) accepted")
	}
}

func TestPacer_Relative(t *testing.T) {
	clock := newFakeClock()
	p := newPacer(PACING_RELATIVE, 500*time.Millisecond, clock)

	for _, played := range []time.Duration{100, 600, 500, 0} {
		if late := p.wait(played * time.Millisecond); late != 0 {
			t.Errorf("relative pacing reported lateness %s", late)
		}
	}
	got := clock.sleepLog()
	want := []time.Duration{400 * time.Millisecond, 500 * time.Millisecond}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", got, want)
	}
}

func TestPacer_DeadlineAbsorbsJitter(t *testing.T) {
	clock := newFakeClock()
	const period = 500 * time.Millisecond
	p := newPacer(PACING_DEADLINE, period, clock)

	// Each step is the time spent clicking before the wait
	steps := []struct {
		click    time.Duration
		wantLate time.Duration
	}{
		{100 * time.Millisecond, 0},
		{100 * time.Millisecond, 0},
		{700 * time.Millisecond, 200 * time.Millisecond},  // late, next deadline kept
		{100 * time.Millisecond, 0},                       // catches up in one short sleep
		{1200 * time.Millisecond, 700 * time.Millisecond}, // more than a period late, rebased
		{100 * time.Millisecond, 0},
	}
	for i, st := range steps {
		clock.advance(st.click)
		if late := p.wait(st.click); late != st.wantLate {
			t.Errorf("step %d: late = %s, want %s", i, late, st.wantLate)
		}
	}

	want := []time.Duration{400, 400, 200, 400}
	got := clock.sleepLog()
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v ms", got, want)
	}
	for i := range want {
		if got[i] != want[i]*time.Millisecond {
			t.Errorf("sleep %d = %s, want %dms", i, got[i], want[i])
		}
	}
}

func TestPacer_DeadlineDoesNotDrift(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	p := newPacer(PACING_DEADLINE, 250*time.Millisecond, clock)
	for i := 0; i < 400; i++ {
		clock.advance(80*time.Millisecond + time.Duration(i%7)*time.Millisecond)
		p.wait(80 * time.Millisecond)
	}
	if got := clock.Now().Sub(start); got != 400*250*time.Millisecond {
		t.Errorf("400 ticks took %s, want exactly 100s", got)
	}
}
