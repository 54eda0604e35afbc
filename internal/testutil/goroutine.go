// Package testutil holds helpers shared by the metronome test suites.
package testutil

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

// GoroutineBaseline samples the goroutine count before a test starts loops.
func GoroutineBaseline() int {
	return runtime.NumGoroutine()
}

// AssertNoGoroutineLeaks waits for the goroutine count to return to baseline
// (plus margin) and fails with the surviving tick loops' stacks if it doesn't.
func AssertNoGoroutineLeaks(t *testing.T, baseline int, margin int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline+margin {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("goroutine leak: baseline=%d, current=%d, margin=%d\n%s",
		baseline, runtime.NumGoroutine(), margin, loopStacks())
}

// loopStacks returns the stacks of goroutines that are inside a tick loop.
func loopStacks() string {
	buf := make([]byte, 1<<20)
	buf = buf[:runtime.Stack(buf, true)]
	var keep []string
	for _, g := range strings.Split(string(buf), "\n\n") {
		if strings.Contains(g, "tickLoop") || strings.Contains(g, "launch") {
			keep = append(keep, g)
		}
	}
	if len(keep) == 0 {
		return "(no tick loop goroutines)"
	}
	return strings.Join(keep, "\n\n")
}
