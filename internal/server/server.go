// Package server exposes an HTTP control API for a metronome arbiter.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome"
)

const DEFAULT_BEATS = 4

// Server starts and stops metronomes on one arbiter in response to HTTP
// calls. Each start is tagged with a run id.
type Server struct {
	arb    *metronome.Arbiter
	logger *zap.Logger

	mutex sync.Mutex // Guards the current run
	run   *run
}

type run struct {
	id      string
	preset  string
	started time.Time
	m       *metronome.Metronome
	timer   *time.Timer
}

func New(arb *metronome.Arbiter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{arb: arb, logger: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(Logging(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", REQUEST_ID_HEADER},
		ExposedHeaders: []string{REQUEST_ID_HEADER},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/presets", s.presets)
		r.Route("/metronome", func(r chi.Router) {
			r.Get("/", s.status)
			r.Post("/start", s.start)
			r.Post("/stop", s.stop)
		})
	})
	return r
}

// Close stops whatever the server started.
func (s *Server) Close() {
	s.mutex.Lock()
	prev := s.run
	s.run = nil
	s.mutex.Unlock()
	if prev == nil {
		return
	}
	if prev.timer != nil {
		prev.timer.Stop()
	}
	prev.m.Stop()
}

type startRequest struct {
	BPM               float64             `json:"bpm"`
	BeatsPerMeasure   *int                `json:"beatsPerMeasure,omitempty"`
	Preset            string              `json:"preset,omitempty"`
	Subdivisions      int                 `json:"subdivisions,omitempty"`
	SubdivisionVolume *float64            `json:"subdivisionVolume,omitempty"`
	Wave              *metronome.WaveType `json:"wave,omitempty"`
	Pacing            string              `json:"pacing,omitempty"`
	DurationMs        int64               `json:"durationMs,omitempty"`
}

type statusResponse struct {
	Playing         bool    `json:"playing"`
	RunID           string  `json:"runId,omitempty"`
	MetronomeID     uint64  `json:"metronomeId,omitempty"`
	BPM             float64 `json:"bpm,omitempty"`
	BeatsPerMeasure int     `json:"beatsPerMeasure"`
	Preset          string  `json:"preset,omitempty"`
	Subdivisions    int     `json:"subdivisions,omitempty"`
	TickPeriodMs    int64   `json:"tickPeriodMs,omitempty"`
	Pacing          string  `json:"pacing,omitempty"`
	StartedAt       string  `json:"startedAt,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type presetView struct {
	Name                 string             `json:"name"`
	AccentFrequency      float64            `json:"accentFrequency"`
	RegularFrequency     float64            `json:"regularFrequency"`
	SubdivisionFrequency float64            `json:"subdivisionFrequency"`
	AccentMs             int64              `json:"accentMs"`
	RegularMs            int64              `json:"regularMs"`
	SubdivisionMs        int64              `json:"subdivisionMs"`
	AccentWave           metronome.WaveType `json:"accentWave"`
	RegularWave          metronome.WaveType `json:"regularWave"`
	SubdivisionWave      metronome.WaveType `json:"subdivisionWave"`
	Subdivisions         int                `json:"subdivisions"`
	SubdivisionVolume    float64            `json:"subdivisionVolume"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) presets(w http.ResponseWriter, r *http.Request) {
	names := metronome.PresetNames()
	views := make([]presetView, 0, len(names))
	for _, name := range names {
		c, _ := metronome.LookupPreset(name)
		views = append(views, presetView{
			Name:                 name,
			AccentFrequency:      c.AccentFrequency,
			RegularFrequency:     c.RegularFrequency,
			SubdivisionFrequency: c.SubdivisionFrequency,
			AccentMs:             c.AccentDuration.Milliseconds(),
			RegularMs:            c.RegularDuration.Milliseconds(),
			SubdivisionMs:        c.SubdivisionDuration.Milliseconds(),
			AccentWave:           c.AccentWave,
			RegularWave:          c.RegularWave,
			SubdivisionWave:      c.SubdivisionWave,
			Subdivisions:         c.Subdivisions,
			SubdivisionVolume:    c.SubdivisionVolume,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.DurationMs < 0 {
		writeError(w, http.StatusBadRequest, errors.New("durationMs must not be negative"))
		return
	}

	preset := req.Preset
	if preset == "" {
		preset = "default"
	}
	accent, ok := metronome.LookupPreset(preset)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown preset "+preset))
		return
	}
	if req.Subdivisions < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %d subdivisions", metronome.ErrInvalidAccentConfig, req.Subdivisions))
		return
	}
	if req.Subdivisions > 0 {
		accent = accent.WithSubdivisions(req.Subdivisions)
	}
	if req.SubdivisionVolume != nil {
		accent = accent.WithSubdivisionVolume(*req.SubdivisionVolume)
	}
	if req.Wave != nil {
		accent.AccentWave = *req.Wave
		accent.RegularWave = *req.Wave
	}
	pacing, err := metronome.ParsePacing(req.Pacing)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	beats := DEFAULT_BEATS
	if req.BeatsPerMeasure != nil {
		beats = *req.BeatsPerMeasure
	}

	m, err := s.arb.NewMetronomeWithAccent(req.BPM, beats, accent)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	m.SetPacing(pacing)

	next := &run{id: uuid.NewString(), preset: preset, started: time.Now(), m: m}
	s.mutex.Lock()
	prev := s.run
	s.run = next
	if err := m.Start(); err != nil {
		s.run = prev
		s.mutex.Unlock()
		writeError(w, errorStatus(err), err)
		return
	}
	if req.DurationMs > 0 {
		id := next.id
		next.timer = time.AfterFunc(time.Duration(req.DurationMs)*time.Millisecond, func() { s.expire(id) })
	}
	s.mutex.Unlock()
	if prev != nil && prev.timer != nil {
		prev.timer.Stop()
	}

	s.logger.Info("run started",
		zap.String("run_id", next.id),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Uint64("metronome_id", m.ID()),
		zap.Float64("bpm", req.BPM),
		zap.String("preset", preset),
	)
	writeJSON(w, http.StatusCreated, s.snapshot())
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	prev := s.run
	s.run = nil
	s.mutex.Unlock()
	if prev != nil && prev.timer != nil {
		prev.timer.Stop()
	}
	s.arb.StopAll()
	writeJSON(w, http.StatusOK, s.snapshot())
}

// expire ends a timed run unless a newer run has replaced it.
func (s *Server) expire(id string) {
	s.mutex.Lock()
	cur := s.run
	if cur == nil || cur.id != id {
		s.mutex.Unlock()
		return
	}
	s.run = nil
	s.mutex.Unlock()
	cur.m.Stop()
	s.logger.Info("run finished", zap.String("run_id", id))
}

func (s *Server) snapshot() statusResponse {
	s.mutex.Lock()
	cur := s.run
	s.mutex.Unlock()

	m := s.arb.Current()
	if m == nil {
		return statusResponse{}
	}
	resp := statusResponse{
		Playing:         m.IsPlaying(),
		MetronomeID:     m.ID(),
		BPM:             m.BPM(),
		BeatsPerMeasure: m.BeatsPerMeasure(),
		Subdivisions:    m.AccentConfig().Subdivisions,
		TickPeriodMs:    m.TickPeriod().Milliseconds(),
		Pacing:          m.Pacing().String(),
	}
	if err := m.Err(); err != nil {
		resp.Error = err.Error()
	}
	if cur != nil && cur.m.ID() == m.ID() {
		resp.RunID = cur.id
		resp.Preset = cur.preset
		resp.StartedAt = cur.started.UTC().Format(time.RFC3339Nano)
	}
	return resp
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, metronome.ErrNoOutputDevice):
		return http.StatusServiceUnavailable
	case errors.Is(err, metronome.ErrInvalidTempo),
		errors.Is(err, metronome.ErrInvalidMeasure),
		errors.Is(err, metronome.ErrInvalidAccentConfig):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
