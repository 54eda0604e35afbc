package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/intuitionamiga/metronome"
	"github.com/intuitionamiga/metronome/internal/config"
)

func TestPrintPresets(t *testing.T) {
	var buf bytes.Buffer
	printPresets(&buf)
	out := buf.String()
	for _, name := range metronome.PresetNames() {
		if !strings.Contains(out, name) {
			t.Errorf("preset %q not listed", name)
		}
	}
	if !strings.Contains(out, "1760.00Hz sine 200ms") {
		t.Errorf("strong accent row missing:\n%s", out)
	}
}

func TestPlay_StopsAfterDuration(t *testing.T) {
	arb := metronome.NewArbiter(nil, func() (metronome.Output, error) {
		return metronome.NewSilentOutput(1000, 1), nil
	})
	m, err := arb.NewMetronome(600, 4)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := play(context.Background(), m, 200*time.Millisecond); err != nil {
		t.Fatalf("play: %v", err)
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Error("play returned early")
	}
	if m.IsPlaying() || arb.Current() != nil {
		t.Error("metronome left running")
	}
}

func TestPlay_ReportsDeadOutput(t *testing.T) {
	out := metronome.NewSilentOutput(1000, 1)
	out.Close()
	arb := metronome.NewArbiter(nil, func() (metronome.Output, error) { return out, nil })
	m, err := arb.NewMetronome(120, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := play(context.Background(), m, 0); err == nil {
		t.Error("play on a closed output returned nil")
	}
}

func TestNewLogger(t *testing.T) {
	cfg, err := config.Load([]string{"-log-level", "warn", "-dev"})
	if err != nil {
		t.Fatal(err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug enabled at warn level")
	}
}
