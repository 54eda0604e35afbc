// main.go - Command line metronome

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/intuitionamiga/metronome"
	"github.com/intuitionamiga/metronome/internal/config"
	"github.com/intuitionamiga/metronome/internal/server"
	"github.com/intuitionamiga/metronome/internal/session"
	"github.com/intuitionamiga/metronome/internal/terminal"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147mMetronome\033[0m - accented clicks, subdivisions and tap tempo")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			config.Usage(os.Stdout)
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ListPresets {
		printPresets(os.Stdout)
		return
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.Beep {
		boilerPlate()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("metronome failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	opts := cfg.OutputOptions()
	open := func() (metronome.Output, error) { return metronome.OpenOutput(opts) }
	arb := metronome.NewArbiter(logger, open)
	defer func() {
		if err := arb.Close(); err != nil {
			logger.Warn("closing audio output", zap.Error(err))
		}
	}()

	switch {
	case cfg.Beep:
		out, err := open()
		if err != nil {
			return err
		}
		defer out.Close()
		return metronome.Beep(out)
	case cfg.SessionFile != "":
		logger.Info("following session file", zap.String("path", cfg.SessionFile))
		return session.Play(ctx, arb, cfg.SessionFile, logger)
	case cfg.HTTPAddr != "":
		return serve(ctx, arb, cfg.HTTPAddr, logger)
	}

	accent, err := cfg.AccentConfig()
	if err != nil {
		return err
	}
	pacing, err := cfg.PacingMode()
	if err != nil {
		return err
	}
	m, err := arb.NewMetronomeWithAccent(cfg.BPM, cfg.BeatsPerMeasure, accent)
	if err != nil {
		return err
	}
	m.SetPacing(pacing)

	if cfg.Interactive {
		return interactive(ctx, m, logger)
	}
	return play(ctx, m, cfg.Duration)
}

// play runs m for d, or until interrupted when d is zero.
func play(ctx context.Context, m *metronome.Metronome, d time.Duration) error {
	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop()

	var expired <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ctx.Done():
	case <-expired:
	case <-m.Done():
	}
	return m.Err()
}

func interactive(ctx context.Context, m *metronome.Metronome, logger *zap.Logger) error {
	raw, err := terminal.OpenRawInput(os.Stdin)
	if err != nil {
		return err
	}
	defer raw.Close()

	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop()

	ctl := terminal.NewController(m, os.Stdout, logger)
	if err := ctl.Run(ctx, raw); err != nil {
		return err
	}
	return m.Err()
}

func serve(ctx context.Context, arb *metronome.Arbiter, addr string, logger *zap.Logger) error {
	api := server.New(arb, logger)
	defer api.Close()

	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("control API listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printPresets(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRESET\tACCENT\tREGULAR\tSUBDIVISION\tTICKS/BEAT")
	for _, name := range metronome.PresetNames() {
		c, _ := metronome.LookupPreset(name)
		fmt.Fprintf(tw, "%s\t%.2fHz %s %s\t%.2fHz %s %s\t%.2fHz %s %s x%.2f\t%d\n",
			name,
			c.AccentFrequency, c.AccentWave, c.AccentDuration,
			c.RegularFrequency, c.RegularWave, c.RegularDuration,
			c.SubdivisionFrequency, c.SubdivisionWave, c.SubdivisionDuration, c.SubdivisionVolume,
			c.Subdivisions)
	}
	tw.Flush()
}
