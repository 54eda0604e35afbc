// Package config loads metronome settings from the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome"
)

// Config holds the CLI's settings. Zero or negative override fields mean
// "keep the preset's value".
type Config struct {
	BPM               float64
	BeatsPerMeasure   int
	Preset            string
	Subdivisions      int
	SubdivisionVolume float64
	Wave              string
	Duration          time.Duration
	Pacing            string

	SampleRate int
	Channels   int
	BufferSize time.Duration

	SessionFile string
	HTTPAddr    string
	Interactive bool
	Beep        bool
	ListPresets bool

	LogLevel string
	Dev      bool
}

// Load reads METRONOME_* environment variables, then lets args override
// them. flag.ErrHelp is returned unchanged when -h is given.
func Load(args []string) (*Config, error) {
	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	fs := flagSet(cfg, io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, nil
}

// Usage prints the flag defaults to w.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: metronome [-bpm 120] [-beats 4] [-preset default] [-duration 30s] [-interactive|-http :8080|-session file.json|-beep|-presets]")
	cfg, _ := fromEnv()
	if cfg == nil {
		cfg = defaults()
	}
	flagSet(cfg, w).PrintDefaults()
}

func defaults() *Config {
	opts := metronome.DefaultOutputOptions()
	return &Config{
		BPM:               120,
		BeatsPerMeasure:   4,
		Preset:            "default",
		SubdivisionVolume: -1,
		Pacing:            metronome.PACING_DEADLINE.String(),
		SampleRate:        opts.SampleRate,
		Channels:          opts.ChannelCount,
		BufferSize:        opts.BufferSize,
		LogLevel:          "info",
	}
}

func fromEnv() (*Config, error) {
	cfg := defaults()
	var errs []error
	parse := func(key string, set func(string) error) {
		if v := getEnv(key, ""); v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	parse("METRONOME_BPM", floatVar(&cfg.BPM))
	parse("METRONOME_BEATS", intVar(&cfg.BeatsPerMeasure))
	parse("METRONOME_SUBDIVISIONS", intVar(&cfg.Subdivisions))
	parse("METRONOME_SUBDIVISION_VOLUME", floatVar(&cfg.SubdivisionVolume))
	parse("METRONOME_DURATION", durationVar(&cfg.Duration))
	parse("METRONOME_SAMPLE_RATE", intVar(&cfg.SampleRate))
	parse("METRONOME_CHANNELS", intVar(&cfg.Channels))
	parse("METRONOME_BUFFER", durationVar(&cfg.BufferSize))
	parse("METRONOME_DEV", boolVar(&cfg.Dev))

	cfg.Preset = getEnv("METRONOME_PRESET", cfg.Preset)
	cfg.Wave = getEnv("METRONOME_WAVE", cfg.Wave)
	cfg.Pacing = getEnv("METRONOME_PACING", cfg.Pacing)
	cfg.SessionFile = getEnv("METRONOME_SESSION", cfg.SessionFile)
	cfg.HTTPAddr = getEnv("METRONOME_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getEnv("METRONOME_LOG_LEVEL", cfg.LogLevel)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func flagSet(cfg *Config, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("metronome", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Float64Var(&cfg.BPM, "bpm", cfg.BPM, "Tempo in beats per minute")
	fs.IntVar(&cfg.BeatsPerMeasure, "beats", cfg.BeatsPerMeasure, "Beats per measure, 0 for no accent")
	fs.StringVar(&cfg.Preset, "preset", cfg.Preset, "Accent preset ("+strings.Join(metronome.PresetNames(), ", ")+")")
	fs.IntVar(&cfg.Subdivisions, "subdivisions", cfg.Subdivisions, "Ticks per beat, 0 keeps the preset")
	fs.Float64Var(&cfg.SubdivisionVolume, "subdivision-volume", cfg.SubdivisionVolume, "Subdivision volume 0-1, negative keeps the preset")
	fs.StringVar(&cfg.Wave, "wave", cfg.Wave, "Beat waveform (sine, square, sawtooth, triangle), empty keeps the preset")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Play for this long, 0 until interrupted")
	fs.StringVar(&cfg.Pacing, "pacing", cfg.Pacing, "Tick pacing (deadline, relative)")
	fs.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	fs.IntVar(&cfg.Channels, "channels", cfg.Channels, "Output channel count")
	fs.DurationVar(&cfg.BufferSize, "buffer", cfg.BufferSize, "Output buffer length")
	fs.StringVar(&cfg.SessionFile, "session", cfg.SessionFile, "Practice session JSON file, reloaded on change")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "Serve the control API on this address")
	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Keyboard control: space taps tempo, +/- adjust, q quits")
	fs.BoolVar(&cfg.Beep, "beep", cfg.Beep, "Play a single 440Hz beep and exit")
	fs.BoolVar(&cfg.ListPresets, "presets", cfg.ListPresets, "List accent presets and exit")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "Human-readable development logging")
	return fs
}

// Validate checks every field without opening a device.
func (c *Config) Validate() error {
	if c.Duration < 0 {
		return fmt.Errorf("negative duration %s", c.Duration)
	}
	accent, err := c.AccentConfig()
	if err != nil {
		return err
	}
	if err := metronome.ValidateSettings(c.BPM, c.BeatsPerMeasure, accent); err != nil {
		return err
	}
	if _, err := c.PacingMode(); err != nil {
		return err
	}
	if err := c.OutputOptions().Validate(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	modes := 0
	for _, on := range []bool{c.Interactive, c.HTTPAddr != "", c.SessionFile != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return errors.New("select at most one of -interactive, -http and -session")
	}
	return nil
}

// AccentConfig resolves the preset and applies the overrides on top.
func (c *Config) AccentConfig() (metronome.AccentConfig, error) {
	accent, ok := metronome.LookupPreset(c.Preset)
	if !ok {
		return metronome.AccentConfig{}, fmt.Errorf("%w: unknown preset %q", metronome.ErrInvalidAccentConfig, c.Preset)
	}
	if c.Subdivisions < 0 {
		return metronome.AccentConfig{}, fmt.Errorf("%w: %d subdivisions", metronome.ErrInvalidAccentConfig, c.Subdivisions)
	}
	if c.Subdivisions > 0 {
		accent = accent.WithSubdivisions(c.Subdivisions)
	}
	if c.SubdivisionVolume >= 0 {
		accent = accent.WithSubdivisionVolume(c.SubdivisionVolume)
	}
	if c.Wave != "" {
		wave, err := metronome.ParseWaveType(c.Wave)
		if err != nil {
			return metronome.AccentConfig{}, fmt.Errorf("%w: %v", metronome.ErrInvalidAccentConfig, err)
		}
		accent.AccentWave = wave
		accent.RegularWave = wave
	}
	return accent, accent.Validate()
}

func (c *Config) PacingMode() (metronome.Pacing, error) {
	return metronome.ParsePacing(c.Pacing)
}

func (c *Config) OutputOptions() metronome.OutputOptions {
	return metronome.OutputOptions{
		SampleRate:   c.SampleRate,
		ChannelCount: c.Channels,
		BufferSize:   c.BufferSize,
	}
}

func (c *Config) Level() (zap.AtomicLevel, error) {
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func floatVar(p *float64) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.ParseFloat(s, 64)
		return err
	}
}

func intVar(p *int) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.Atoi(s)
		return err
	}
}

func durationVar(p *time.Duration) func(string) error {
	return func(s string) (err error) {
		*p, err = time.ParseDuration(s)
		return err
	}
}

func boolVar(p *bool) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.ParseBool(s)
		return err
	}
}
