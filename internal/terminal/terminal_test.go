package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome"
)

func TestTapTempo(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

	tests := []struct {
		name string
		taps []int // ms offsets
		want float64
		ok   bool
	}{
		{"single tap", []int{0}, 0, false},
		{"steady 120", []int{0, 500, 1000, 1500}, 120, true},
		{"averaged", []int{0, 400, 1000}, 120, true},
		{"pause restarts", []int{0, 500, 3000}, 0, false},
		{"after restart", []int{0, 500, 3000, 3600}, 100, true},
		{"old intervals dropped", []int{0, 1000, 1500, 2000, 2500, 3000}, 120, true},
		{"clock went backwards", []int{1000, 500}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tap TapTempo
			var bpm float64
			var ok bool
			for _, ms := range tt.taps {
				bpm, ok = tap.Tap(at(ms))
			}
			if ok != tt.ok || (ok && !approx(bpm, tt.want)) {
				t.Errorf("Tap = %.2f, %v; want %.2f, %v", bpm, ok, tt.want, tt.ok)
			}
		})
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func newControlled(t *testing.T, bpm float64) (*metronome.Arbiter, *metronome.Metronome) {
	t.Helper()
	arb := metronome.NewArbiter(zap.NewNop(), func() (metronome.Output, error) {
		return metronome.NewSilentOutput(1000, 1), nil
	})
	cfg := metronome.DefaultAccentConfig()
	cfg.AccentDuration = 10 * time.Millisecond
	cfg.RegularDuration = 10 * time.Millisecond
	m, err := arb.NewMetronomeWithAccent(bpm, 4, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return arb, m
}

func TestController_StepKeys(t *testing.T) {
	_, m := newControlled(t, 120)
	var out bytes.Buffer
	c := NewController(m, &out, nil)

	if err := c.Run(context.Background(), ReaderKeys{strings.NewReader("++=-x")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.BPM() != 130 {
		t.Errorf("BPM = %v, want 130", m.BPM())
	}
	if !strings.Contains(out.String(), "130 BPM") {
		t.Errorf("status line missing: %q", out.String())
	}
}

func TestController_Clamps(t *testing.T) {
	_, m := newControlled(t, 598)
	c := NewController(m, nil, nil)
	c.HandleKey(KEY_UP)
	if m.BPM() != BPM_MAX {
		t.Errorf("BPM = %v, want %v", m.BPM(), BPM_MAX)
	}

	if err := m.SetBPM(22); err != nil {
		t.Fatal(err)
	}
	c.HandleKey(KEY_DOWN)
	c.HandleKey(KEY_DOWN)
	if m.BPM() != BPM_MIN {
		t.Errorf("BPM = %v, want %v", m.BPM(), BPM_MIN)
	}
}

func TestController_QuitKeys(t *testing.T) {
	_, m := newControlled(t, 120)
	c := NewController(m, nil, nil)
	for _, k := range []byte{KEY_QUIT, 'Q', KEY_CTRL_C} {
		if quit, err := c.HandleKey(k); !quit || err != nil {
			t.Errorf("key %q: quit %v, err %v", k, quit, err)
		}
	}
	if quit, _ := c.HandleKey('z'); quit {
		t.Error("unknown key quit")
	}

	// Input stops after q; the trailing '+' is never read
	if err := c.Run(context.Background(), ReaderKeys{strings.NewReader("q+")}); err != nil {
		t.Fatal(err)
	}
	if m.BPM() != 120 {
		t.Errorf("key after quit applied: %v BPM", m.BPM())
	}
}

func TestController_TapRestartsPlayingMetronome(t *testing.T) {
	arb, m := newControlled(t, 120)
	c := NewController(m, nil, zap.NewNop())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	c.HandleKey(KEY_TAP)
	now = now.Add(400 * time.Millisecond)
	c.HandleKey(KEY_TAP)

	if m.BPM() != 150 {
		t.Errorf("tapped BPM = %v, want 150", m.BPM())
	}
	cur := arb.Current()
	if cur == nil || cur.BPM() != 150 || !cur.IsPlaying() {
		t.Error("playing metronome not restarted at the tapped tempo")
	}
}

func TestController_CancelledContext(t *testing.T) {
	_, m := newControlled(t, 120)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewController(m, nil, nil).Run(ctx, ReaderKeys{strings.NewReader("+++")}); err != nil {
		t.Errorf("Run = %v, want nil on cancel", err)
	}
	if m.BPM() != 120 {
		t.Error("keys applied after cancel")
	}
}
