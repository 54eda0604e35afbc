// Package terminal drives a metronome from the keyboard.
package terminal

import "time"

const (
	TAP_HISTORY = 4               // Intervals averaged for the tapped tempo
	TAP_RESET   = 2 * time.Second // A longer pause starts a new tap sequence
)

// TapTempo turns a sequence of key taps into a tempo.
type TapTempo struct {
	last      time.Time
	intervals []time.Duration
}

// Tap records a tap at now. Once two taps are in the same sequence it returns
// the tempo implied by the average of the recent intervals.
func (t *TapTempo) Tap(now time.Time) (bpm float64, ok bool) {
	if t.last.IsZero() || now.Sub(t.last) > TAP_RESET || !now.After(t.last) {
		t.last = now
		t.intervals = t.intervals[:0]
		return 0, false
	}
	t.intervals = append(t.intervals, now.Sub(t.last))
	if len(t.intervals) > TAP_HISTORY {
		t.intervals = t.intervals[len(t.intervals)-TAP_HISTORY:]
	}
	t.last = now

	var sum time.Duration
	for _, d := range t.intervals {
		sum += d
	}
	avg := sum / time.Duration(len(t.intervals))
	return float64(time.Minute) / float64(avg), true
}

func (t *TapTempo) Reset() {
	t.last = time.Time{}
	t.intervals = t.intervals[:0]
}
