// errors.go - Error values returned by the metronome

package metronome

import "errors"

var (
	// ErrNoOutputDevice is wrapped by every failure to acquire an audio output.
	ErrNoOutputDevice = errors.New("no output device available")
	// ErrOutputClosed is returned by writes to an output that has been shut down.
	ErrOutputClosed = errors.New("audio output closed")

	ErrInvalidTempo        = errors.New("invalid tempo")
	ErrInvalidMeasure      = errors.New("invalid beats per measure")
	ErrInvalidAccentConfig = errors.New("invalid accent configuration")
)
