package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome"
)

// Editors often write a file in several steps; changes closer together than
// this are reloaded once.
const RELOAD_SETTLE = 50 * time.Millisecond

// Watcher reloads one session file whenever it changes on disk. It watches
// the containing directory so replace-by-rename saves are seen too.
type Watcher struct {
	path    string
	w       *fsnotify.Watcher
	logger  *zap.Logger
	updates chan *Session
	done    chan struct{}
}

func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	sw := &Watcher{
		path:    abs,
		w:       w,
		logger:  logger.With(zap.String("session", abs)),
		updates: make(chan *Session, 1),
		done:    make(chan struct{}),
	}
	go sw.loop()
	return sw, nil
}

// Updates delivers each successfully parsed revision. Only the newest
// pending revision is kept if the reader falls behind.
func (sw *Watcher) Updates() <-chan *Session { return sw.updates }

func (sw *Watcher) Close() error {
	err := sw.w.Close()
	<-sw.done
	return err
}

func (sw *Watcher) loop() {
	defer close(sw.done)
	defer close(sw.updates)

	var settle <-chan time.Time
	for {
		select {
		case ev, ok := <-sw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != sw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			settle = time.After(RELOAD_SETTLE)
		case err, ok := <-sw.w.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("session watch error", zap.Error(err))
		case <-settle:
			settle = nil
			sw.reload()
		}
	}
}

func (sw *Watcher) reload() {
	s, err := Load(sw.path)
	if err != nil {
		// Half-written or invalid files keep the previous session playing
		sw.logger.Warn("session reload skipped", zap.Error(err))
		return
	}
	select {
	case <-sw.updates:
	default:
	}
	sw.updates <- s
	sw.logger.Info("session reloaded", zap.Float64("bpm", s.BPM), zap.String("preset", s.Preset))
}

// Play starts a metronome from the session at path and restarts it with the
// new settings each time the file changes, until ctx is done.
func Play(ctx context.Context, arb *metronome.Arbiter, path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := Load(path)
	if err != nil {
		return err
	}
	accent, err := s.AccentConfig()
	if err != nil {
		return err
	}
	m, err := arb.NewMetronomeWithAccent(s.BPM, s.BeatsPerMeasure, accent)
	if err != nil {
		return err
	}
	if err := s.Apply(m); err != nil {
		return err
	}

	sw, err := NewWatcher(path, logger)
	if err != nil {
		return err
	}
	defer sw.Close()

	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.Done():
			if err := m.Err(); err != nil {
				return err
			}
			// Stopped from elsewhere; wait for the next revision to restart
			select {
			case <-ctx.Done():
				return nil
			case next, ok := <-sw.Updates():
				if !ok {
					return nil
				}
				if err := restart(m, next); err != nil {
					return err
				}
			}
		case next, ok := <-sw.Updates():
			if !ok {
				return nil
			}
			if err := restart(m, next); err != nil {
				return err
			}
		}
	}
}

func restart(m *metronome.Metronome, s *Session) error {
	if err := s.Apply(m); err != nil {
		return err
	}
	return m.Start()
}
