// arbiter_test.go - Exclusive playback across metronomes

package metronome

import (
	"errors"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/intuitionamiga/metronome/internal/metrics"
	"github.com/intuitionamiga/metronome/internal/testutil"
)

func TestArbiter_StartPreemptsPrevious(t *testing.T) {
	baseline := testutil.GoroutineBaseline()
	arb := newTestArbiter(newRecordingOutput(1))
	a := newTestMetronome(t, arb, 4, shortClicks())
	b := newTestMetronome(t, arb, 3, shortClicks())
	aTicks := tickChannel(a)
	bTicks := tickChannel(b)

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	waitTicks(t, aTicks, 1)

	preempted := promtest.ToFloat64(metrics.PreemptionsTotal)
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	if a.IsPlaying() {
		t.Error("first metronome still playing after second started")
	}
	if !b.IsPlaying() {
		t.Error("second metronome not playing")
	}
	if cur := arb.Current(); cur == nil || cur.ID() != b.ID() {
		t.Errorf("Current = %v, want metronome %d", cur, b.ID())
	}
	if got := promtest.ToFloat64(metrics.PreemptionsTotal) - preempted; got != 1 {
		t.Errorf("preemptions counted %v, want 1", got)
	}
	if promtest.ToFloat64(metrics.Active) != 1 {
		t.Error("active gauge not set")
	}

	waitDone(t, a)
	waitTicks(t, bTicks, 2)

	arb.StopAll()
	waitDone(t, b)
	if promtest.ToFloat64(metrics.Active) != 0 {
		t.Error("active gauge not cleared")
	}
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestArbiter_StopAll(t *testing.T) {
	arb := newTestArbiter(newRecordingOutput(1))
	arb.StopAll() // nothing registered

	m := newTestMetronome(t, arb, 4, shortClicks())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	arb.StopAll()
	arb.StopAll()
	if m.IsPlaying() || arb.Current() != nil {
		t.Error("StopAll left the metronome registered or playing")
	}
	waitDone(t, m)
}

func TestArbiter_StopThroughClone(t *testing.T) {
	arb := newTestArbiter(newRecordingOutput(1))
	m := newTestMetronome(t, arb, 4, shortClicks())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}

	// The handle the arbiter keeps is a clone; any handle stops the same player
	arb.Current().Stop()
	if m.IsPlaying() {
		t.Error("original still playing after stopping the registered clone")
	}
	waitDone(t, m)

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	m.Clone().Stop()
	if m.IsPlaying() || arb.Current() != nil {
		t.Error("stop through a clone did not unregister")
	}
	waitDone(t, m)
}

func TestArbiter_StoppingIdleMetronomeKeepsCurrent(t *testing.T) {
	arb := newTestArbiter(newRecordingOutput(1))
	playing := newTestMetronome(t, arb, 4, shortClicks())
	idle := newTestMetronome(t, arb, 4, shortClicks())

	if err := playing.Start(); err != nil {
		t.Fatal(err)
	}
	idle.Stop()
	if !playing.IsPlaying() {
		t.Error("stopping an idle metronome halted the current one")
	}
	if cur := arb.Current(); cur == nil || cur.ID() != playing.ID() {
		t.Error("stopping an idle metronome cleared the registry")
	}
	playing.Stop()
	waitDone(t, playing)
}

func TestArbiter_RestartReplacesOwnLoop(t *testing.T) {
	baseline := testutil.GoroutineBaseline()
	arb := newTestArbiter(newRecordingOutput(1))
	m := newTestMetronome(t, arb, 4, shortClicks())

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	firstDone := m.Done()
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if m.Done() == firstDone {
		t.Fatal("restart reused the previous loop")
	}
	select {
	case <-firstDone:
	case <-m.Done():
		t.Fatal("new loop exited before the one it replaced")
	}
	if !m.IsPlaying() {
		t.Error("restarted metronome not playing")
	}

	m.Stop()
	waitDone(t, m)
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestArbiter_ConcurrentStartsLeaveOnePlaying(t *testing.T) {
	baseline := testutil.GoroutineBaseline()
	arb := newTestArbiter(newRecordingOutput(1))

	const n = 16
	metronomes := make([]*Metronome, n)
	for i := range metronomes {
		metronomes[i] = newTestMetronome(t, arb, 4, shortClicks())
	}

	var wg sync.WaitGroup
	for _, m := range metronomes {
		wg.Go(func() {
			for range 5 {
				if err := m.Start(); err != nil {
					t.Error(err)
				}
			}
		})
	}
	wg.Wait()

	cur := arb.Current()
	if cur == nil {
		t.Fatal("no current metronome after concurrent starts")
	}
	playing := 0
	for _, m := range metronomes {
		if m.IsPlaying() {
			playing++
			if m.ID() != cur.ID() {
				t.Errorf("metronome %d playing but %d is current", m.ID(), cur.ID())
			}
		}
	}
	if playing != 1 {
		t.Errorf("%d metronomes playing, want 1", playing)
	}

	arb.StopAll()
	for _, m := range metronomes {
		waitDone(t, m)
	}
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

// countingOpener hands out a fresh recorder per open and remembers them all.
type countingOpener struct {
	mutex   sync.Mutex
	outputs []*recordingOutput
	prepare func(n int, out *recordingOutput)
}

func (c *countingOpener) open() (Output, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := newRecordingOutput(1)
	if c.prepare != nil {
		c.prepare(len(c.outputs), out)
	}
	c.outputs = append(c.outputs, out)
	return out, nil
}

func (c *countingOpener) opened() []*recordingOutput {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]*recordingOutput(nil), c.outputs...)
}

func TestArbiter_SharesOneOutput(t *testing.T) {
	baseline := testutil.GoroutineBaseline()
	opener := &countingOpener{}
	arb := NewArbiter(nil, opener.open)

	for i := 0; i < 5; i++ {
		m := newTestMetronome(t, arb, 4, shortClicks())
		if err := m.Start(); err != nil {
			t.Fatal(err)
		}
	}
	outs := opener.opened()
	if len(outs) != 1 {
		t.Fatalf("opened %d outputs for 5 metronomes, want 1", len(outs))
	}

	if err := arb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if arb.Current() != nil {
		t.Error("Close left a metronome registered")
	}
	if n := outs[0].closeCount(); n != 1 {
		t.Errorf("shared output closed %d times, want 1", n)
	}
	if err := arb.Close(); err != nil || outs[0].closeCount() != 1 {
		t.Errorf("second Close: %v, closes %d", err, outs[0].closeCount())
	}

	// A closed arbiter opens again on demand
	newTestMetronome(t, arb, 4, shortClicks())
	if n := len(opener.opened()); n != 2 {
		t.Errorf("opened %d outputs after Close, want 2", n)
	}
	arb.Close()
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestArbiter_ReopensAfterWriteFailure(t *testing.T) {
	opener := &countingOpener{prepare: func(n int, out *recordingOutput) {
		if n == 0 {
			out.failAfter = 1
		}
	}}
	arb := NewArbiter(nil, opener.open)
	defer arb.Close()

	m := newTestMetronome(t, arb, 4, shortClicks())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, m)
	if !errors.Is(m.Err(), errDeviceGone) {
		t.Fatalf("Err = %v, want errDeviceGone", m.Err())
	}
	if n := opener.opened()[0].closeCount(); n != 1 {
		t.Errorf("failed output closed %d times, want 1", n)
	}

	next := newTestMetronome(t, arb, 4, shortClicks())
	stop := stopAfter(next, 2)
	if err := next.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, next)
	outs := opener.opened()
	if len(outs) != 2 || len(stop()) != 2 || outs[1].writeCount() != 2 {
		t.Errorf("after reopen: %d outputs, %d ticks", len(outs), len(stop()))
	}
}

func TestArbiter_LeavesCallerOutputOpen(t *testing.T) {
	arb := newTestArbiter(newRecordingOutput(1))
	own := newRecordingOutput(1)
	m, err := arb.NewMetronomeWithOutput(TEST_BPM, 4, shortClicks(), own)
	if err != nil {
		t.Fatal(err)
	}
	stop := stopAfter(m, 1)
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, m)
	if len(stop()) != 1 {
		t.Fatal("metronome did not tick")
	}
	arb.Close()
	if own.closeCount() != 0 {
		t.Error("arbiter closed an output it did not open")
	}
}
