// metronome_test_helpers_test.go - Fake output and clock shared by the metronome tests

package metronome

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

const (
	TEST_SAMPLE_RATE = 1000 // one frame per millisecond keeps buffers readable
	TEST_BPM         = 600  // 100ms beats
)

var errDeviceGone = errors.New("device disconnected")

// recordingOutput captures the frame count of every write. It returns
// immediately unless delay is set, and starts failing once failAfter writes
// have succeeded (failAfter < 0 never fails).
type recordingOutput struct {
	sampleRate int
	channels   int
	delay      time.Duration
	failAfter  int

	mutex  sync.Mutex
	writes [][]float32
	closes int
}

func newRecordingOutput(channels int) *recordingOutput {
	return &recordingOutput{sampleRate: TEST_SAMPLE_RATE, channels: channels, failAfter: -1}
}

func (r *recordingOutput) SampleRate() int   { return r.sampleRate }
func (r *recordingOutput) ChannelCount() int { return r.channels }

func (r *recordingOutput) Write(samples []float32) error {
	r.mutex.Lock()
	if r.failAfter >= 0 && len(r.writes) >= r.failAfter {
		r.mutex.Unlock()
		return errDeviceGone
	}
	r.writes = append(r.writes, append([]float32(nil), samples...))
	r.mutex.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return nil
}

// Close is counted but does not fail later writes, so one recorder can back
// several runs.
func (r *recordingOutput) Close() error {
	r.mutex.Lock()
	r.closes++
	r.mutex.Unlock()
	return nil
}

func (r *recordingOutput) closeCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.closes
}

func (r *recordingOutput) frameCounts() []int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	counts := make([]int, len(r.writes))
	for i, w := range r.writes {
		counts[i] = len(w) / r.channels
	}
	return counts
}

func (r *recordingOutput) writeCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.writes)
}

// fakeClock advances only when slept on or advanced explicitly.
type fakeClock struct {
	mutex  sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
}

func (c *fakeClock) advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) sleepLog() []time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// shortClicks keeps every click well inside a 100ms beat.
func shortClicks() AccentConfig {
	c := NewAccentConfig(NOTE_A5, NOTE_A4, 10*time.Millisecond, 10*time.Millisecond, WAVE_SINE, WAVE_SINE)
	c.SubdivisionDuration = 5 * time.Millisecond
	return c
}

func newTestArbiter(out Output) *Arbiter {
	return NewArbiter(zap.NewNop(), func() (Output, error) { return out, nil })
}

func newTestMetronome(t *testing.T, arb *Arbiter, beats int, cfg AccentConfig) *Metronome {
	t.Helper()
	m, err := arb.NewMetronomeWithAccent(TEST_BPM, beats, cfg)
	if err != nil {
		t.Fatalf("NewMetronomeWithAccent: %v", err)
	}
	return m
}

// waitTicks blocks until n ticks have been reported on ch or fails the test.
func waitTicks(t *testing.T, ch <-chan Tick, n int) []Tick {
	t.Helper()
	var got []Tick
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case tick := <-ch:
			got = append(got, tick)
		case <-timeout:
			t.Fatalf("timed out after %d of %d ticks", len(got), n)
		}
	}
	return got
}

func waitDone(t *testing.T, m *Metronome) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("metronome %d loop did not exit", m.ID())
	}
}

// tickChannel registers an OnTick hook that never blocks the loop.
func tickChannel(m *Metronome) <-chan Tick {
	ch := make(chan Tick, 256)
	m.OnTick(func(tick Tick) {
		select {
		case ch <- tick:
		default:
		}
	})
	return ch
}
