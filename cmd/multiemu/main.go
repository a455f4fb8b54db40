// Package main implements a windowed multi-system emulator front end.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/emu"
	"github.com/Saphereye/multiemu/internal/multiemu"
	"github.com/Saphereye/multiemu/internal/ui"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type optionFlags struct {
	rom    string
	system string
	scale  int
	speed  int
	mute   bool
	quiet  bool
	debug  bool
}

func main() {
	opts := readArguments()
	logger := createLogger(opts)
	if !opts.quiet {
		logger.Info("multiemu", log.String("version", buildinfo.Version(version, commit, date)))
	}

	if err := run(opts, logger); err != nil {
		logger.Fatal(err.Error())
	}
}

func readArguments() optionFlags {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	opts := optionFlags{}

	flags.StringVar(&opts.rom, "rom", "", "path of the ROM image to run")
	flags.StringVar(&opts.system, "system", "chip8", "system to emulate: chip8 or gameboy")
	flags.IntVar(&opts.scale, "scale", 0, "window scale factor, 0 picks one per system")
	flags.IntVar(&opts.speed, "speed", 1, "emulation speed multiplier")
	flags.BoolVar(&opts.mute, "mute", false, "disable audio output")
	flags.BoolVar(&opts.quiet, "quiet", false, "only log errors")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	err := flags.Parse(os.Args[1:])
	if err != nil || opts.rom == "" {
		fmt.Printf("usage: multiemu -rom <file> [options]\n\n")
		flags.PrintDefaults()
		os.Exit(1)
	}
	return opts
}

func createLogger(opts optionFlags) *log.Logger {
	cfg := log.DefaultConfig()
	if opts.debug {
		cfg.Level = log.DebugLevel
	} else if opts.quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

func run(opts optionFlags, logger *log.Logger) error {
	sys, err := emu.ParseSystem(opts.system)
	if err != nil {
		return err
	}
	m, err := multiemu.New(sys, logger)
	if err != nil {
		return err
	}
	if err := multiemu.LoadFile(m, opts.rom); err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}

	cfg := ui.Config{
		Title: fmt.Sprintf("multiemu - %s", sys),
		Scale: opts.scale,
		Speed: opts.speed,
		Mute:  opts.mute,
	}
	return ui.NewApp(cfg, m, logger).Run()
}
